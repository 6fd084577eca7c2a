// Package retry bounds re-attempts of a fallible operation with an explicit
// policy that inspects the error kind before retrying. Exhausting the
// attempts always surfaces the last error; there is no silent empty result.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds one Do call. Zero values select the defaults.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts uint64
	// Interval is the pause between tries.
	Interval time.Duration
	// Retryable, when set, decides from the error kind whether another
	// attempt makes sense. A non-retryable error is returned immediately.
	Retryable func(error) bool
}

const (
	DefaultAttempts = 3
	DefaultInterval = time.Second
)

// Do runs op until it succeeds, the policy declares the error fatal, or the
// attempts are exhausted. The returned error is always the operation's own
// last error.
func Do(op func() error, p Policy) error {
	if p.Attempts == 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Interval == 0 {
		p.Interval = DefaultInterval
	}
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), p.Attempts-1)
	return backoff.Retry(wrapped, b)
}
