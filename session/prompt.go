package session

import (
	"regexp"
	"strings"
	"time"

	"github.com/morganhein/dutcli/schema"
)

// The composite prompt grammar. A prompt is a hostname-like token followed
// by a mode suffix, possibly wrapped in ANSI CSI sequences:
//
//	switch>                     cli non-priv mode
//	switch(config-if)#          cli priv and config modes
//	switch:/var/log#            bash working dir and shell type
const (
	controlCodeRE = `(?:\x1B(?:.|[@-_][0-?]*[ -/]*[@-~]))*`
	hostnameRE    = `([a-zA-Z]+[\w\-\.]*)`
	modeAndPathRE = `(` +
		`>` + // cli non-priv mode
		`|` +
		`((\([\w\-\.\,\/]+\))?#)` + // cli priv and config modes
		`|` +
		`(:[\w\-\.\/~]+(#|\$))` + // bash working dir and shell type
		`)`
)

// promptSearch captures the hostname token (group 1) of whatever prompt
// shows up next; Resync freezes the per-session pattern from it.
var promptSearch = regexp.MustCompile(controlCodeRE + hostnameRE + modeAndPathRE)

// Resync re-derives the session prompt: it waits for any prompt-shaped
// output, captures the hostname token, and freezes a pattern of that
// literal token plus the mode-suffix alternation. The mode suffix may vary
// between calls (enable/configure transitions); the token may not, until
// the next Resync. Returns the output preceding the prompt.
func (s *Session) Resync(timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	if _, err := s.m.Expect(timeout, promptSearch); err != nil {
		return "", s.promptTimeout(err)
	}
	token := s.m.Group(1)
	s.prompt = regexp.MustCompile(controlCodeRE + regexp.QuoteMeta(token) + modeAndPathRE)
	log.Debugf("prompt synchronized on token %q", token)
	return normalizeNewlines(s.m.Before()), nil
}

// WaitPrompt blocks until the frozen prompt pattern appears and returns the
// output preceding it. The session must have been synchronized first.
func (s *Session) WaitPrompt(timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	if s.prompt == nil {
		return "", &schema.ProtocolDesyncError{Reason: "prompt never synchronized"}
	}
	if _, err := s.m.Expect(timeout, s.prompt); err != nil {
		return "", s.promptTimeout(err)
	}
	return normalizeNewlines(s.m.Before()), nil
}

// IsAtPrompt reports whether the most recent match on the stream was the
// session prompt, i.e. whether it is safe to send a command.
func (s *Session) IsAtPrompt() bool {
	if s.prompt == nil || s.m.After() == "" {
		return false
	}
	loc := s.prompt.FindStringIndex(s.m.After())
	return loc != nil && loc[0] == 0
}

func (s *Session) promptTimeout(err error) error {
	return &schema.ProtocolDesyncError{
		Reason: "prompt did not appear",
		After:  s.m.After(),
		Prompt: s.promptPattern(),
		Err:    err,
	}
}

func (s *Session) promptPattern() string {
	if s.prompt == nil {
		return "<unsynchronized>"
	}
	return s.prompt.String()
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
