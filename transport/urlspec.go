package transport

import (
	"fmt"
	"net/url"

	"github.com/morganhein/dutcli/schema"
)

// Invocation is the external client process a connection URL maps to.
type Invocation struct {
	URL  string
	Cmd  string
	Args []string
}

// ParseURL deterministically maps a connection URL onto the client process
// that provides the terminal. Parsing is pure; nothing is started.
//
//	ssh://host[:port]      -> ssh user@host with host key checks disabled
//	telnet://host:port     -> mc host:port
//	tcp://host:port        -> mc host:port
//	console://host/path    -> console -f -M host -e^^^^ path
//
// Unrecognized schemes fall back to invoking the scheme name with host and
// port as arguments.
func ParseURL(raw string, o schema.ConnectOptions) (Invocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Invocation{}, &schema.TransportError{URL: raw, Err: err}
	}

	inv := Invocation{URL: raw, Cmd: u.Scheme}
	switch u.Scheme {
	case "ssh":
		inv.Args = []string{fmt.Sprintf("%s@%s", o.Username, u.Hostname())}
		inv.Args = append(inv.Args, "-o LogLevel ERROR")
		inv.Args = append(inv.Args, "-o StrictHostKeyChecking no")
		inv.Args = append(inv.Args, "-o UserKnownHostsFile /dev/null")
		port := u.Port()
		if port == "" {
			port = "22"
		}
		inv.Args = append(inv.Args, fmt.Sprintf("-p %s", port))
	case "tcp", "telnet":
		inv.Cmd = "mc"
		inv.Args = []string{fmt.Sprintf("%s:%s", u.Hostname(), u.Port())}
	case "console", "conserver":
		// console spec: console://<netloc>/<path>
		// executes:     console -f -M <netloc> -e^^^^ <path>
		inv.Cmd = "console"
		inv.Args = []string{"-f", "-M", u.Host, "-e^^^^", trimSlashes(u.Path)}
	default:
		inv.Args = []string{u.Hostname()}
		if u.Port() != "" {
			inv.Args = append(inv.Args, u.Port())
		}
	}
	inv.Args = append(inv.Args, o.ExtraArgs...)
	return inv, nil
}

func trimSlashes(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
