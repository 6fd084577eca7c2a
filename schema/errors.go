package schema

import (
	"fmt"
	"time"
)

// TransportError reports that the underlying transport could not be
// started or connected. It is fatal and never retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MatchTimeoutError reports that none of the expected patterns appeared on
// the stream before the deadline.
type MatchTimeoutError struct {
	Patterns []string
	Timeout  time.Duration
}

func (e *MatchTimeoutError) Error() string {
	return fmt.Sprintf("no pattern matched within %s (candidates %q)", e.Timeout, e.Patterns)
}

// LoginTimeoutError reports that no login banner appeared within the
// wall-clock login budget.
type LoginTimeoutError struct {
	Budget  time.Duration
	Elapsed time.Duration
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("no login banner after %s (budget %s)", e.Elapsed.Round(time.Millisecond), e.Budget)
}

// ProtocolDesyncError reports that the session is not known to be at a
// prompt: either a send was refused, or the prompt never reappeared.
type ProtocolDesyncError struct {
	Reason string
	After  string
	Prompt string
	Err    error
}

func (e *ProtocolDesyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prompt desync: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("prompt desync: %s (after %q, want %s)", e.Reason, e.After, e.Prompt)
}

func (e *ProtocolDesyncError) Unwrap() error { return e.Err }

// CommandTimeoutError reports a command that did complete (the session is
// back at a prompt) but took longer than the requested timeout.
type CommandTimeoutError struct {
	Cmd     string
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %q took longer than expected (actual %s, expected %s)",
		e.Cmd, e.Elapsed.Round(time.Millisecond), e.Timeout)
}

// PromptTimeoutError reports a command that did not observably complete:
// the prompt never came back within the allowed leeway.
type PromptTimeoutError struct {
	Cmd     string
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *PromptTimeoutError) Error() string {
	return fmt.Sprintf("command %q didn't finish after %s (expected %s)",
		e.Cmd, e.Elapsed.Round(time.Millisecond), e.Timeout)
}

// RemoteCommandError reports an in-band device error: a line of output
// beginning with "%".
type RemoteCommandError struct {
	Msg    string
	Output string
}

func (e *RemoteCommandError) Error() string { return e.Msg }

// LoginFatalError reports an unrecoverable CLI state found during login,
// such as a stack trace on the console.
type LoginFatalError struct {
	Reason string
}

func (e *LoginFatalError) Error() string { return e.Reason }
