package expect_test

import (
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhein/dutcli/expect"
	"github.com/morganhein/dutcli/schema"
)

func newPipeMatcher(t *testing.T) (*expect.Matcher, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	return expect.NewMatcher(r, nil), w
}

func TestExpectSplitsBeforeAndAfter(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("Welcome to the box\r\nPassword: "))

	idx, err := m.Expect(time.Second, regexp.MustCompile(`Password:`))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "Welcome to the box\r\n", m.Before())
	assert.Equal(t, "Password:", m.After())
}

func TestExpectFirstListedCandidateWins(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("abcdef"))

	// "abc" occurs earlier in the stream, but candidate order decides.
	idx, err := m.Expect(time.Second,
		regexp.MustCompile(`cde`),
		regexp.MustCompile(`abc`))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "cde", m.After())
}

func TestExpectSentinelTimeout(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("partial output"))
	time.Sleep(20 * time.Millisecond)

	idx, err := m.Expect(50*time.Millisecond,
		expect.Timeout,
		regexp.MustCompile(`never appears`))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "partial output", m.Before())
	assert.Empty(t, m.After())
}

func TestExpectTimeoutRetainsBuffer(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("half an ech"))
	time.Sleep(20 * time.Millisecond)

	_, err := m.Expect(50*time.Millisecond, regexp.MustCompile(`full echo`))
	require.Error(t, err)
	var mte *schema.MatchTimeoutError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, "half an ech", m.Before())

	// The unmatched bytes stay in the buffer for the next call.
	go w.Write([]byte("o here"))
	_, err = m.Expect(time.Second, regexp.MustCompile(`an echo`))
	require.NoError(t, err)
}

func TestExpectCaptureGroups(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("Software image version: 4.32.1F\r\n"))

	_, err := m.Expect(time.Second, regexp.MustCompile(`version: (\d+)\.(\d+)`))
	require.NoError(t, err)
	assert.Equal(t, "version: 4.32", m.Group(0))
	assert.Equal(t, "4", m.Group(1))
	assert.Equal(t, "32", m.Group(2))
	assert.Empty(t, m.Group(3))
}

func TestExpectConsumesThroughMatch(t *testing.T) {
	m, w := newPipeMatcher(t)
	go w.Write([]byte("one\r\ntwo\r\n"))

	_, err := m.ExpectString(time.Second, "one")
	require.NoError(t, err)
	_, err = m.ExpectString(time.Second, "two")
	require.NoError(t, err)
	assert.Equal(t, "\r\n", m.Before())
}

func TestExpectStreamClosed(t *testing.T) {
	m, w := newPipeMatcher(t)
	w.Close()

	_, err := m.Expect(time.Second, regexp.MustCompile(`anything`))
	require.Error(t, err)
}
