package transport

import (
	"os"
	"os/exec"

	"github.com/creack/pty"
	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/schema"
)

var log schema.Logger

func init() {
	log = logger.Log
}

// Terminal geometry for spawned clients. A very wide terminal keeps the
// device from wrapping long command echoes.
const (
	ptyRows = 60
	ptyCols = 500
)

// Stream is one live terminal connection to a device. Control characters
// (interrupt, end-of-file) travel in-band as bytes on Write.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Proc is a Stream backed by an external client process running under a pty.
type Proc struct {
	inv Invocation
	cmd *exec.Cmd
	tty *os.File
}

// Spawn starts the invocation's client under a pty and returns the stream.
// A process that cannot be started is a TransportError: fatal, not retried.
func Spawn(inv Invocation) (*Proc, error) {
	cmd := exec.Command(inv.Cmd, inv.Args...)
	log.Infof("spawning %s %v", inv.Cmd, inv.Args)
	tty, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
	if err != nil {
		return nil, &schema.TransportError{URL: inv.URL, Err: err}
	}
	return &Proc{inv: inv, cmd: cmd, tty: tty}, nil
}

func (p *Proc) Read(b []byte) (int, error)  { return p.tty.Read(b) }
func (p *Proc) Write(b []byte) (int, error) { return p.tty.Write(b) }

// Close tears down the pty and reaps the client process.
func (p *Proc) Close() error {
	err := p.tty.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	return err
}

// Connect parses the URL and spawns the mapped client.
func Connect(raw string, o schema.ConnectOptions) (*Proc, error) {
	inv, err := ParseURL(raw, o)
	if err != nil {
		return nil, err
	}
	return Spawn(inv)
}
