package transport

import (
	"fmt"
	"io"
	"os"

	"github.com/morganhein/dutcli/schema"
	"golang.org/x/crypto/ssh"
)

// SSHStream is a Stream carried over an in-process SSH connection instead of
// a spawned ssh client. The remote side gets a pty so echo and prompts
// behave the way they do on a real terminal.
type SSHStream struct {
	connection *ssh.Client
	session    *ssh.Session
	stdout     io.Reader
	stdin      io.WriteCloser
}

func publicKeyFile(file string) ssh.AuthMethod {
	buffer, err := os.ReadFile(file)
	if err != nil {
		return nil
	}

	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil
	}
	return ssh.PublicKeys(key)
}

func CreateSSHConfig(options schema.ConnectOptions) (sshConfig *ssh.ClientConfig) {
	sshConfig = &ssh.ClientConfig{
		User:            options.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if options.Password != "" {
		sshConfig.Auth = []ssh.AuthMethod{
			ssh.Password(options.Password),
		}
	}
	if options.Cert != "" {
		sshConfig.Auth = []ssh.AuthMethod{
			publicKeyFile(options.Cert),
		}
	}
	return
}

// DialSSH connects to host:port and starts a remote shell with a wide pty.
func DialSSH(host string, port int, options schema.ConnectOptions) (*SSHStream, error) {
	s := &SSHStream{}
	addr := fmt.Sprint(host, ":", port)
	url := fmt.Sprintf("ssh://%s", addr)
	log.Debug("Dialing ", addr)
	conn, err := ssh.Dial("tcp", addr, CreateSSHConfig(options))
	if err != nil {
		return nil, &schema.TransportError{URL: url, Err: err}
	}
	s.connection = conn
	s.session, err = s.connection.NewSession()
	if err != nil {
		conn.Close()
		return nil, &schema.TransportError{URL: url, Err: err}
	}
	s.stdin, _ = s.session.StdinPipe()
	s.stdout, _ = s.session.StdoutPipe()

	modes := ssh.TerminalModes{
		ssh.ECHO:          1, // the session verifies command echoes
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := s.session.RequestPty("xterm", ptyRows, ptyCols, modes); err != nil {
		s.session.Close()
		conn.Close()
		return nil, &schema.TransportError{URL: url, Err: fmt.Errorf("request for pseudo terminal failed: %w", err)}
	}

	if err := s.session.Shell(); err != nil {
		s.session.Close()
		conn.Close()
		return nil, &schema.TransportError{URL: url, Err: fmt.Errorf("failed to start shell: %w", err)}
	}
	log.Info("SSH session created.")
	return s, nil
}

func (s *SSHStream) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *SSHStream) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *SSHStream) Close() error {
	s.stdin.Close()
	s.session.Close()
	return s.connection.Close()
}
