package session

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/morganhein/dutcli/schema"
)

var crlf = regexp.MustCompile(`\r\n`)

// SendUnchecked sends one command line and verifies its echo, without
// waiting for the next prompt. It refuses to send while the stream is not
// observably at a prompt.
func (s *Session) SendUnchecked(cmd string) error {
	if !s.IsAtPrompt() {
		return &schema.ProtocolDesyncError{
			Reason: "cannot find prompt, refusing to send command",
			After:  s.m.After(),
			Prompt: s.promptPattern(),
		}
	}

	// "en" is a common abbreviation for enable. We special-case this
	// particular command.
	if cmd == "en" {
		cmd = "enable"
	}

	// sendLine appends the line separator, so strip any line endings from
	// the end of the command to prevent the prompt from getting out of
	// sync.
	cmd = strings.TrimRight(cmd, "\r\n")

	if err := s.sendLine(cmd); err != nil {
		return err
	}

	if _, err := s.m.ExpectString(echoTimeout, cmd); err != nil {
		if !isMatchTimeout(err) {
			return err
		}
		// Long commands get truncated on the serial console: check only the
		// echoed text preceding the first carriage return against the head
		// of the command.
		head := s.m.Before()
		i := strings.Index(head, "\r")
		if i < 0 || !strings.HasPrefix(cmd, strings.TrimSpace(head[:i])) {
			return err
		}
	}

	// Newlines sometimes disappear on a tty: nudge once before giving up.
	if _, err := s.m.Expect(echoTimeout, crlf); err != nil {
		if !isMatchTimeout(err) {
			return err
		}
		if err := s.sendLine(""); err != nil {
			return err
		}
		if _, err := s.m.Expect(echoTimeout, crlf); err != nil {
			return err
		}
	}
	return nil
}

// sendShell sends the command and waits for the next prompt, returning the
// raw output in between.
func (s *Session) sendShell(cmd string, timeout time.Duration) (string, error) {
	if err := s.SendUnchecked(cmd); err != nil {
		return "", err
	}
	return s.WaitPrompt(timeout)
}

// SendSimple runs one command and returns its cleaned output, bypassing the
// deadline/leeway policy and the remote inactivity timeout machinery.
func (s *Session) SendSimple(cmd string, timeout time.Duration) (string, error) {
	out, err := s.sendShell(cmd, timeout)
	if err != nil {
		return out, err
	}
	return ProcessOutput(out)
}

// SendIntr sends an interrupt and waits for its terminal echo, retrying a
// fixed number of times since SIGINTs occasionally vanish on a tty.
// Exhausting the retries propagates the last timeout.
func (s *Session) SendIntr() (string, error) {
	var last error
	for i := 0; i < intrRetries; i++ {
		if err := s.sendIntrByte(); err != nil {
			return "", err
		}
		if _, err := s.m.ExpectString(intrTimeout, "^C"); err != nil {
			if !isMatchTimeout(err) {
				return "", err
			}
			last = err
			continue
		}
		return s.WaitPrompt(intrTimeout)
	}
	return "", last
}

func isMatchTimeout(err error) bool {
	var mt *schema.MatchTimeoutError
	return errors.As(err, &mt)
}

// isPromptTimeout reports whether err is a prompt wait that timed out, as
// opposed to a desync detected before sending.
func isPromptTimeout(err error) bool {
	var de *schema.ProtocolDesyncError
	return errors.As(err, &de) && de.Err != nil && isMatchTimeout(de.Err)
}
