package session

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhein/dutcli/schema"
)

const deviceDeadline = 5 * time.Second

// scriptedDevice plays the device end of an in-memory terminal. net.Pipe is
// synchronous, but the session's matcher reads continuously, so device
// writes never block.
type scriptedDevice struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
	done chan struct{}
}

func newTestSession(t *testing.T, clientCmd string, o schema.ConnectOptions) (*Session, *scriptedDevice) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	s := New(client, clientCmd, o)
	d := &scriptedDevice{t: t, conn: server, r: bufio.NewReader(server), done: make(chan struct{})}
	return s, d
}

// script runs fn as the device side. Assertions inside the script must use
// assert, not require; it is not the test goroutine.
func (d *scriptedDevice) script(fn func()) {
	go func() {
		defer close(d.done)
		fn()
	}()
}

func (d *scriptedDevice) wait() {
	d.t.Helper()
	select {
	case <-d.done:
	case <-time.After(deviceDeadline):
		d.t.Error("device script did not finish")
	}
}

func (d *scriptedDevice) send(text string) {
	_ = d.conn.SetWriteDeadline(time.Now().Add(deviceDeadline))
	if _, err := d.conn.Write([]byte(text)); err != nil {
		d.t.Errorf("device write %q: %v", text, err)
	}
}

// expectLine reads one newline-terminated line the session sent.
func (d *scriptedDevice) expectLine(want string) {
	_ = d.conn.SetReadDeadline(time.Now().Add(deviceDeadline))
	line, err := d.r.ReadString('\n')
	if err != nil {
		d.t.Errorf("device read (want %q): %v", want, err)
		return
	}
	assert.Equal(d.t, want, strings.TrimRight(line, "\r\n"))
}

// expectByte reads a single raw byte; control characters are not
// line-terminated.
func (d *scriptedDevice) expectByte(want byte) {
	_ = d.conn.SetReadDeadline(time.Now().Add(deviceDeadline))
	b, err := d.r.ReadByte()
	if err != nil {
		d.t.Errorf("device read byte: %v", err)
		return
	}
	assert.Equal(d.t, want, b)
}

// respond plays one echo-verified exchange: read the command line, echo it
// back, then emit the body and a fresh prompt.
func (d *scriptedDevice) respond(cmd, body, prompt string) {
	d.expectLine(cmd)
	d.send(cmd + "\r\n" + body + prompt)
}

// drain discards everything the session writes, for tests that only
// exercise timeouts.
func (d *scriptedDevice) drain() {
	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := d.conn.Read(buf); err != nil {
				return
			}
		}
	}()
}

// syncToPrompt brings the session to a known prompt.
func syncToPrompt(t *testing.T, s *Session, d *scriptedDevice) {
	t.Helper()
	d.send("\r\nswitch>")
	_, err := s.Resync(time.Second)
	require.NoError(t, err)
	require.True(t, s.IsAtPrompt())
}

// shortEchoTimeout shrinks the echo window for tests that have to run into
// it.
func shortEchoTimeout(t *testing.T, d time.Duration) {
	t.Helper()
	old := echoTimeout
	echoTimeout = d
	t.Cleanup(func() { echoTimeout = old })
}
