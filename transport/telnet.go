package transport

import (
	"fmt"
	"time"

	"github.com/morganhein/dutcli/schema"
	"github.com/ziutek/telnet"
)

// TelnetStream is a Stream carried over an in-process telnet connection,
// for devices whose consoles speak the telnet option protocol directly.
type TelnetStream struct {
	conn *telnet.Conn
}

// DialTelnet connects to host:port. Port 0 defaults to 23.
func DialTelnet(host string, port int) (*TelnetStream, error) {
	if port == 0 {
		port = 23
	}
	addr := fmt.Sprintf("%v:%v", host, port)
	conn, err := telnet.DialTimeout("tcp", addr, 20*time.Second)
	if err != nil {
		return nil, &schema.TransportError{URL: fmt.Sprintf("telnet://%s", addr), Err: err}
	}
	conn.SetUnixWriteMode(false)
	log.Info("Telnet session created.")
	return &TelnetStream{conn: conn}, nil
}

func (t *TelnetStream) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TelnetStream) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *TelnetStream) Close() error                { return t.conn.Close() }
