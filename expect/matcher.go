// Package expect matches a live terminal byte stream against ordered
// candidate patterns, exposing the text before the match, the matched text,
// and any capture groups.
package expect

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/schema"
	"github.com/morganhein/dutcli/stream"
)

var log schema.Logger

func init() {
	log = logger.Log
}

// Matching never needs more history than this; older bytes are dropped.
const maxBuffer = 1 << 20

// Timeout is the sentinel candidate. When it appears in an Expect call, a
// deadline expiry reports its index instead of returning an error.
var Timeout *regexp.Regexp

// Matcher owns all reads from a stream. One reader goroutine feeds chunks
// to the (single) expecting goroutine; backpressure is absorbed by the
// kernel-side buffers of the transport.
type Matcher struct {
	events  chan []byte
	readErr error

	buf    []byte
	before string
	after  string
	groups []string
}

// NewMatcher starts reading from s. Chunks are mirrored to pub, when given,
// for transcript taps.
func NewMatcher(s io.Reader, pub *stream.Publisher) *Matcher {
	m := &Matcher{events: make(chan []byte, 64)}
	go m.read(s, pub)
	return m
}

func (m *Matcher) read(s io.Reader, pub *stream.Publisher) {
	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if pub != nil {
				pub.Publish(chunk)
			}
			m.events <- chunk
		}
		if err != nil {
			m.readErr = err
			close(m.events)
			return
		}
	}
}

// Expect blocks until one candidate matches the stream or the deadline
// elapses. Candidates are tried in order; the first whose pattern matches
// the accumulated buffer wins and its index is returned. The matched text
// and everything preceding it are retained for Before/After/Group; the
// buffer resumes after the match.
func (m *Matcher) Expect(timeout time.Duration, patterns ...*regexp.Regexp) (int, error) {
	if idx, ok := m.search(patterns); ok {
		return idx, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case chunk, ok := <-m.events:
			if !ok {
				m.before = string(m.buf)
				m.after = ""
				m.groups = nil
				return -1, fmt.Errorf("stream closed while expecting: %w", m.readErr)
			}
			m.buf = append(m.buf, chunk...)
			if len(m.buf) > maxBuffer {
				m.buf = m.buf[len(m.buf)-maxBuffer:]
			}
			if idx, ok := m.search(patterns); ok {
				return idx, nil
			}
		case <-timer.C:
			for i, p := range patterns {
				if p == Timeout {
					m.before = string(m.buf)
					m.after = ""
					m.groups = nil
					return i, nil
				}
			}
			m.before = string(m.buf)
			m.after = ""
			m.groups = nil
			return -1, &schema.MatchTimeoutError{Patterns: patternStrings(patterns), Timeout: timeout}
		}
	}
}

// ExpectString is Expect against the literal text.
func (m *Matcher) ExpectString(timeout time.Duration, lit string) (int, error) {
	return m.Expect(timeout, regexp.MustCompile(regexp.QuoteMeta(lit)))
}

func (m *Matcher) search(patterns []*regexp.Regexp) (int, bool) {
	text := string(m.buf)
	for i, p := range patterns {
		if p == Timeout {
			continue
		}
		loc := p.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		m.before = text[:loc[0]]
		m.after = text[loc[0]:loc[1]]
		m.groups = m.groups[:0]
		for g := 0; g*2 < len(loc); g++ {
			if loc[g*2] < 0 {
				m.groups = append(m.groups, "")
			} else {
				m.groups = append(m.groups, text[loc[g*2]:loc[g*2+1]])
			}
		}
		m.buf = m.buf[loc[1]:]
		log.Debugf("matched candidate %d: %q", i, m.after)
		return i, true
	}
	return -1, false
}

// Before is the text preceding the most recent match. After a timeout,
// sentinel or not, it holds the entire unconsumed buffer.
func (m *Matcher) Before() string { return m.before }

// After is the text of the most recent match itself; empty after a
// sentinel timeout.
func (m *Matcher) After() string { return m.after }

// Group returns capture group i of the most recent match, "" if unset.
func (m *Matcher) Group(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

func patternStrings(patterns []*regexp.Regexp) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == Timeout {
			out = append(out, "<timeout>")
			continue
		}
		out = append(out, p.String())
	}
	return out
}
