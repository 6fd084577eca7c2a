package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/morganhein/dutcli/schema"
)

// Send runs one command under the client-side deadline policy. The shell is
// given leewayFactor times the requested timeout to produce the next
// prompt; a command that completes late but within the leeway fails with
// CommandTimeoutError, one whose prompt never comes back fails with
// PromptTimeoutError. Both carry the command, the requested timeout and the
// measured elapsed time.
func (s *Session) Send(cmd string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	shellTimeout := time.Duration(leewayFactor) * timeout

	if s.opts.EnableCLITimeout {
		cliTimeout := time.Duration(0)
		// The remote inactivity timeout does not fire inside subshells, so
		// bash/python commands keep it disabled. Commands that do get the
		// remote timeout also get extra shell budget, since the kick back
		// to the prompt takes the full remote timeout itself.
		trimmed := strings.TrimSpace(cmd)
		if !strings.HasPrefix(trimmed, "bash") && !strings.HasPrefix(trimmed, "python") {
			cliTimeout = time.Duration(leewayFactor) * timeout
			shellTimeout = 3 * timeout
		}
		if err := s.SetCLITimeout(cliTimeout); err != nil {
			return "", err
		}
	}

	start := time.Now()
	out, err := s.SendSimple(cmd, shellTimeout)
	elapsed := time.Since(start)

	if err != nil {
		if isPromptTimeout(err) {
			return out, &schema.PromptTimeoutError{Cmd: cmd, Timeout: timeout, Elapsed: elapsed}
		}
		return out, err
	}
	if elapsed > timeout {
		if s.IsAtPrompt() {
			return out, &schema.CommandTimeoutError{Cmd: cmd, Timeout: timeout, Elapsed: elapsed}
		}
		return out, &schema.PromptTimeoutError{Cmd: cmd, Timeout: timeout, Elapsed: elapsed}
	}
	return out, nil
}

// SendAll runs the commands in order with the default timeout and returns
// one cleaned output per command. It stops at the first failure.
func (s *Session) SendAll(cmds ...string) ([]string, error) {
	outs := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		out, err := s.Send(cmd, 0)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// SendScript runs a newline-separated block of commands.
func (s *Session) SendScript(script string) ([]string, error) {
	return s.SendAll(SplitCommands(script)...)
}

// SplitCommands splits a newline-separated command block, trimming each
// line.
func SplitCommands(script string) []string {
	lines := strings.Split(strings.TrimSpace(script), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// SetCLITimeout pushes an inactivity timeout to the remote CLI so a hung
// command eventually gets kicked back to a prompt. d < 0 selects the
// default of leewayFactor times the session timeout; 0 disables the remote
// timeout. Pushing is a no-op when the cached value already matches, only
// applies to MOS with the feature flag on, and requires the session to be
// observably at a prompt.
func (s *Session) SetCLITimeout(d time.Duration) error {
	if s.flavor != schema.FlavorMOS || !s.opts.EnableCLITimeout {
		return nil
	}
	if d < 0 {
		d = time.Duration(leewayFactor) * s.timeout
	}
	secs := int(d / time.Second)
	if secs == s.cliTimeout {
		return nil
	}
	if !s.IsAtPrompt() {
		return &schema.ProtocolDesyncError{
			Reason: "not at CLI prompt, refusing to push inactivity timeout",
			After:  s.m.After(),
			Prompt: s.promptPattern(),
		}
	}
	// Cache before sending; the push itself moves the stream off the prompt.
	s.cliTimeout = secs

	var err error
	if secs > 0 {
		_, err = s.SendSimple(fmt.Sprintf("set timeout %d", secs), 0)
	} else {
		_, err = s.SendSimple("no timeout", 0)
	}
	return err
}
