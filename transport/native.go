package transport

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/morganhein/dutcli/schema"
)

// DialNative connects in-process instead of spawning an external client.
// Only the network schemes have a native dialer; console URLs always go
// through the external client. The returned name plays the role of the
// client command: "ssh" authenticates by itself, "telnet" does not.
func DialNative(raw string, o schema.ConnectOptions) (Stream, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", &schema.TransportError{URL: raw, Err: err}
	}
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, "", &schema.TransportError{URL: raw, Err: err}
		}
	}

	switch u.Scheme {
	case "ssh":
		if port == 0 {
			port = 22
		}
		st, err := DialSSH(u.Hostname(), port, o)
		if err != nil {
			return nil, "", err
		}
		return st, "ssh", nil
	case "tcp", "telnet":
		st, err := DialTelnet(u.Hostname(), port)
		if err != nil {
			return nil, "", err
		}
		return st, "telnet", nil
	}
	return nil, "", &schema.TransportError{
		URL: raw,
		Err: fmt.Errorf("no native dialer for scheme %q", u.Scheme),
	}
}
