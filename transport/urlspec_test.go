package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhein/dutcli/schema"
	"github.com/morganhein/dutcli/transport"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		opts schema.ConnectOptions
		cmd  string
		args []string
	}{
		{
			name: "ssh default port",
			url:  "ssh://sw101",
			opts: schema.ConnectOptions{Username: "admin"},
			cmd:  "ssh",
			args: []string{
				"admin@sw101",
				"-o LogLevel ERROR",
				"-o StrictHostKeyChecking no",
				"-o UserKnownHostsFile /dev/null",
				"-p 22",
			},
		},
		{
			name: "ssh explicit port",
			url:  "ssh://sw101:2200",
			opts: schema.ConnectOptions{Username: "root"},
			cmd:  "ssh",
			args: []string{
				"root@sw101",
				"-o LogLevel ERROR",
				"-o StrictHostKeyChecking no",
				"-o UserKnownHostsFile /dev/null",
				"-p 2200",
			},
		},
		{
			name: "telnet becomes mc",
			url:  "telnet://term01:7001",
			cmd:  "mc",
			args: []string{"term01:7001"},
		},
		{
			name: "tcp becomes mc",
			url:  "tcp://term01:7001",
			cmd:  "mc",
			args: []string{"term01:7001"},
		},
		{
			name: "console",
			url:  "console://cs1/rack4-port7",
			cmd:  "console",
			args: []string{"-f", "-M", "cs1", "-e^^^^", "rack4-port7"},
		},
		{
			name: "conserver alias",
			url:  "conserver://cs1/rack4-port7",
			cmd:  "console",
			args: []string{"-f", "-M", "cs1", "-e^^^^", "rack4-port7"},
		},
		{
			name: "unknown scheme falls back to scheme name",
			url:  "cu://tty-host:9600",
			cmd:  "cu",
			args: []string{"tty-host", "9600"},
		},
		{
			name: "extra args are appended verbatim",
			url:  "tcp://term01:7001",
			opts: schema.ConnectOptions{ExtraArgs: []string{"--raw"}},
			cmd:  "mc",
			args: []string{"term01:7001", "--raw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := transport.ParseURL(tt.url, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.url, inv.URL)
			assert.Equal(t, tt.cmd, inv.Cmd)
			assert.Equal(t, tt.args, inv.Args)
		})
	}
}

func TestParseURLBadInput(t *testing.T) {
	_, err := transport.ParseURL("ssh://bad\x7furl::", schema.ConnectOptions{})
	require.Error(t, err)
	var te *schema.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestDialNativeUnsupportedScheme(t *testing.T) {
	// console needs the external client; there is nothing to dial.
	_, _, err := transport.DialNative("console://cs1/rack4-port7", schema.ConnectOptions{})
	require.Error(t, err)
	var te *schema.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestSpawnMissingClient(t *testing.T) {
	inv := transport.Invocation{URL: "fake://x", Cmd: "no-such-client-4712", Args: nil}
	_, err := transport.Spawn(inv)
	require.Error(t, err)
	var te *schema.TransportError
	assert.ErrorAs(t, err, &te)
}
