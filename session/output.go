package session

import (
	"regexp"

	"github.com/morganhein/dutcli/schema"
)

var (
	controlCodes = regexp.MustCompile("\x1B([@-_][0-?]*[ -/]*[@-~]|.)")
	// Devices report inline errors as a line starting with a single "%".
	remoteError = regexp.MustCompile(`(?m)^% (.*)$`)
)

// StripControlCodes removes ANSI CSI-style sequences and carriage returns.
// Escape sequences are stripped, not interpreted.
func StripControlCodes(value string) string {
	value = controlCodes.ReplaceAllString(value, "")
	return removeCR(value)
}

func removeCR(value string) string {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != '\r' {
			out = append(out, value[i])
		}
	}
	return string(out)
}

// ProcessOutput cleans raw command output and surfaces any in-band device
// error as a RemoteCommandError carrying the raw output.
func ProcessOutput(output string) (string, error) {
	clean := StripControlCodes(output)
	if m := remoteError.FindStringSubmatch(clean); m != nil {
		return clean, &schema.RemoteCommandError{Msg: m[1], Output: output}
	}
	return clean, nil
}
