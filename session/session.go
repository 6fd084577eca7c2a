// Package session drives a text CLI on a networking device over a terminal
// stream: login negotiation across firmware families, prompt
// synchronization, echo-verified command execution and the two-tier
// timeout discipline separating slow commands from hung ones.
package session

import (
	"regexp"
	"time"

	"github.com/morganhein/dutcli/expect"
	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/schema"
	"github.com/morganhein/dutcli/stream"
	"github.com/morganhein/dutcli/transport"
)

var log schema.Logger

func init() {
	log = logger.Log
}

const (
	// DefaultTimeout bounds a command when the caller does not say otherwise.
	DefaultTimeout = 30 * time.Second
	// intrRetries bounds the interrupt-send loop.
	intrRetries = 5
	// leewayFactor separates "slow but completed" from "genuinely hung".
	leewayFactor = 2
	// fallbackPassword is the well-known credential some runs leave behind.
	fallbackPassword = "opensesame"

	ctrlC = 0x03
	ctrlD = 0x04
)

// Vars so the package tests can run against a scripted device without
// real-device waits.
var (
	// echoTimeout is how long the device gets to echo a sent line back.
	echoTimeout = 10 * time.Second
	intrTimeout = 5 * time.Second
	// bannerPoll paces the nudge loop while hunting for a login banner.
	bannerPoll = 2 * time.Second
)

// Session owns exactly one terminal stream to one device. It is driven by a
// single goroutine; concurrent use is not supported.
type Session struct {
	stream transport.Stream
	m      *expect.Matcher
	pub    *stream.Publisher
	opts   schema.ConnectOptions

	// clientCmd is the spawned client ("ssh", "mc", "console", ...). The
	// ssh client authenticates by itself, so the banner dance is skipped
	// and the terminal is assumed wide.
	clientCmd string

	flavor     schema.Flavor
	prompt     *regexp.Regexp
	timeout    time.Duration
	cliTimeout int // cached remote inactivity timeout, seconds; 0 = disabled

	serial       string
	microVersion string
	deviceGen    int   // 0 when the probe failed or never ran
	wdSupported  *bool // nil when the probe failed or never ran
}

// New wraps an already-connected stream. clientCmd names the client that
// provides the stream (the first word of the spawn invocation).
func New(st transport.Stream, clientCmd string, o schema.ConnectOptions) *Session {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.FallbackPassword == "" {
		o.FallbackPassword = fallbackPassword
	}
	pub := stream.New()
	return &Session{
		stream:    st,
		m:         expect.NewMatcher(st, pub),
		pub:       pub,
		opts:      o,
		clientCmd: clientCmd,
		flavor:    schema.FlavorUnknown,
		timeout:   o.Timeout,
	}
}

// Open parses the connection URL, spawns the mapped client and wraps it.
func Open(url string, o schema.ConnectOptions) (*Session, error) {
	inv, err := transport.ParseURL(url, o)
	if err != nil {
		return nil, err
	}
	proc, err := transport.Spawn(inv)
	if err != nil {
		return nil, err
	}
	return New(proc, inv.Cmd, o), nil
}

// OpenNative dials the device in-process (ssh or telnet) instead of
// spawning an external client.
func OpenNative(url string, o schema.ConnectOptions) (*Session, error) {
	st, clientCmd, err := transport.DialNative(url, o)
	if err != nil {
		return nil, err
	}
	return New(st, clientCmd, o), nil
}

// Publisher exposes the stream taps (transcripts and the like).
func (s *Session) Publisher() *stream.Publisher { return s.pub }

// Flavor is the firmware family, authoritative only after Login.
func (s *Session) Flavor() schema.Flavor { return s.flavor }

// Serial is the device serial number captured during login, if any.
func (s *Session) Serial() string { return s.serial }

// MicroVersion is the management controller version captured during login.
func (s *Session) MicroVersion() string { return s.microVersion }

// DeviceGeneration reports the probed hardware generation; ok is false when
// the probe failed or never ran.
func (s *Session) DeviceGeneration() (gen int, ok bool) {
	return s.deviceGen, s.deviceGen != 0
}

// WatchdogSupported reports the probed watchdog capability; ok is false when
// the probe failed or never ran.
func (s *Session) WatchdogSupported() (supported, ok bool) {
	if s.wdSupported == nil {
		return false, false
	}
	return *s.wdSupported, true
}

// Close tears down the transport. The Session must not be used afterwards.
func (s *Session) Close() error {
	return s.stream.Close()
}

func (s *Session) sendLine(line string) error {
	_, err := s.stream.Write([]byte(line + "\n"))
	return err
}

func (s *Session) sendEOF() error {
	_, err := s.stream.Write([]byte{ctrlD})
	return err
}

func (s *Session) sendIntrByte() error {
	_, err := s.stream.Write([]byte{ctrlC})
	return err
}
