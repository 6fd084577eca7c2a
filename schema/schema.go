package schema

import "time"

// Flavor identifies the firmware family running on the device. It is first
// guessed from the login banner and later pinned down from "show version"
// output, which is authoritative.
type Flavor int

const (
	FlavorUnknown Flavor = iota
	FlavorEOS
	FlavorMOS
	FlavorAboot
)

func (f Flavor) String() string {
	switch f {
	case FlavorEOS:
		return "eos"
	case FlavorMOS:
		return "mos"
	case FlavorAboot:
		return "aboot"
	default:
		return "unknown"
	}
}

// ParseFlavor maps the canonical flavor names back to their values.
func ParseFlavor(s string) Flavor {
	switch s {
	case "eos":
		return FlavorEOS
	case "mos":
		return FlavorMOS
	case "aboot":
		return FlavorAboot
	default:
		return FlavorUnknown
	}
}

// ConnectOptions carries everything needed to reach and authenticate
// against a device.
type ConnectOptions struct {
	Username string
	Password string
	// FallbackPassword is tried when login recovery detects a password
	// left configured by a previous run.
	FallbackPassword string
	Cert             string
	// ExtraArgs are appended verbatim to the spawned client's argv.
	ExtraArgs []string
	// EnableCLITimeout allows the session to push an inactivity timeout
	// to the remote CLI alongside each command.
	EnableCLITimeout bool
	// Timeout is the default per-command deadline.
	Timeout time.Duration
}

// StreamEvent is one chunk of raw device I/O as observed on the wire.
type StreamEvent struct {
	Data []byte
	Time time.Time
}

// Logger is the logging surface the packages in this module depend on,
// satisfied by the go-logging logger configured in the logger package.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warning(args ...interface{})
	Warningf(format string, args ...interface{})
	Critical(args ...interface{})
	Criticalf(format string, args ...interface{})
}
