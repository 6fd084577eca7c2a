package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhein/dutcli/schema"
)

func TestSendWithinDeadline(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{})
	syncToPrompt(t, s, d)

	d.script(func() {
		d.respond("show clock", "uptime is 2 days\r\n", "switch>")
	})
	out, err := s.Send("show clock", 500*time.Millisecond)
	require.NoError(t, err)
	assert.Contains(t, out, "uptime is 2 days")
	d.wait()
}

// A command that produces its prompt after the deadline but within the
// leeway completed, merely late: the shell is fine, the command is not.
func TestSendLateCompletionIsCommandTimeout(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{})
	syncToPrompt(t, s, d)

	d.script(func() {
		d.expectLine("slow thing")
		d.send("slow thing\r\n")
		time.Sleep(300 * time.Millisecond)
		d.send("\r\nswitch>")
	})
	_, err := s.Send("slow thing", 200*time.Millisecond)
	var cte *schema.CommandTimeoutError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, "slow thing", cte.Cmd)
	assert.Equal(t, 200*time.Millisecond, cte.Timeout)
	assert.Greater(t, cte.Elapsed, cte.Timeout)
	assert.True(t, s.IsAtPrompt())
	d.wait()
}

// A prompt that never comes back within the leeway means the shell itself
// is gone.
func TestSendHungCommandIsPromptTimeout(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{})
	syncToPrompt(t, s, d)

	d.script(func() {
		d.expectLine("hang forever")
		d.send("hang forever\r\n")
	})
	_, err := s.Send("hang forever", 100*time.Millisecond)
	var pte *schema.PromptTimeoutError
	require.ErrorAs(t, err, &pte)
	assert.Equal(t, 100*time.Millisecond, pte.Timeout)
	assert.False(t, s.IsAtPrompt())
	d.wait()
}

func TestSendAllStopsAtFirstFailure(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{})
	syncToPrompt(t, s, d)

	d.script(func() {
		d.respond("show version", "all good\r\n", "switch>")
		d.respond("show bogus", "% Invalid input\r\n", "switch>")
	})
	outs, err := s.SendAll("show version", "show bogus", "never sent")
	var re *schema.RemoteCommandError
	require.ErrorAs(t, err, &re)
	require.Len(t, outs, 1)
	assert.Contains(t, outs[0], "all good")
	d.wait()
}

func TestSendScript(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{})
	syncToPrompt(t, s, d)

	d.script(func() {
		d.respond("configure", "", "switch(config)#")
		d.respond("hostname sw2", "", "switch(config)#")
	})
	outs, err := s.SendScript("  configure\n\thostname sw2  \n")
	require.NoError(t, err)
	assert.Len(t, outs, 2)
	d.wait()
}

func TestSplitCommands(t *testing.T) {
	assert.Equal(t,
		[]string{"enable", "show version"},
		SplitCommands("\n  enable  \nshow version\n"))
}

func TestSetCLITimeoutCachesPushedValue(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{
		EnableCLITimeout: true,
		Timeout:          time.Second,
	})
	s.flavor = schema.FlavorMOS
	syncToPrompt(t, s, d)

	d.script(func() {
		d.respond("set timeout 2", "", "switch>")
		d.respond("no timeout", "", "switch>")
	})

	// d < 0 selects leeway x session timeout.
	require.NoError(t, s.SetCLITimeout(-1))
	// Same value again: nothing may reach the device.
	require.NoError(t, s.SetCLITimeout(2*time.Second))
	// A different value is pushed.
	require.NoError(t, s.SetCLITimeout(0))
	d.wait()
}

func TestSetCLITimeoutIgnoredOffMOS(t *testing.T) {
	s, d := newTestSession(t, "mc", schema.ConnectOptions{EnableCLITimeout: true})
	s.flavor = schema.FlavorEOS
	syncToPrompt(t, s, d)

	// Returns before touching the stream; the device reads nothing.
	require.NoError(t, s.SetCLITimeout(time.Minute))
}

func TestSetCLITimeoutRequiresPrompt(t *testing.T) {
	s, _ := newTestSession(t, "mc", schema.ConnectOptions{EnableCLITimeout: true})
	s.flavor = schema.FlavorMOS

	err := s.SetCLITimeout(time.Minute)
	var de *schema.ProtocolDesyncError
	require.ErrorAs(t, err, &de)
}
