// Package waitfor polls a condition until it holds, with the same two-tier
// timeout discipline the command executor uses: a condition that comes true
// late is reported differently from one that never comes true at all.
package waitfor

import (
	"fmt"
	"time"
)

// LeewayFactor is how much longer than the requested timeout a condition is
// given before it is declared hopeless rather than merely slow.
const LeewayFactor = 2

const (
	DefaultTimeout = 30 * time.Second
	DefaultPeriod  = 100 * time.Millisecond
)

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait unless the Suppress predicate accepts it.
type Condition func() (bool, error)

// Options tune one Wait call. Zero values select the defaults above.
type Options struct {
	Timeout time.Duration
	Period  time.Duration
	// Suppress, when set, marks errors from the condition as transient:
	// they are swallowed and polling continues.
	Suppress func(error) bool
}

// LateSuccessError reports a condition that came true after the requested
// timeout but within the leeway.
type LateSuccessError struct {
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *LateSuccessError) Error() string {
	return fmt.Sprintf("timed out after %s, but eventually succeeded after %s",
		e.Timeout, e.Elapsed.Round(time.Millisecond))
}

// TimeoutError reports a condition that never came true, even within the
// leeway.
type TimeoutError struct {
	Timeout time.Duration
	Leeway  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("unsuccessful after the requested %s timeout and after a leeway of %s",
		e.Timeout, e.Leeway)
}

// Wait polls cond every Period up to the leeway deadline. Success within
// Timeout returns nil; success after Timeout but within LeewayFactor×Timeout
// returns LateSuccessError; anything else returns TimeoutError or the first
// non-suppressed condition error.
func Wait(cond Condition, o Options) error {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Period == 0 {
		o.Period = DefaultPeriod
	}
	if o.Timeout <= o.Period {
		return fmt.Errorf("polling period %s must be smaller than timeout %s", o.Period, o.Timeout)
	}

	start := time.Now()
	for {
		ok, err := cond()
		if err != nil && (o.Suppress == nil || !o.Suppress(err)) {
			return err
		}
		if err == nil && ok {
			if elapsed := time.Since(start); elapsed > o.Timeout {
				return &LateSuccessError{Timeout: o.Timeout, Elapsed: elapsed}
			}
			return nil
		}
		if time.Since(start) > LeewayFactor*o.Timeout {
			return &TimeoutError{Timeout: o.Timeout, Leeway: LeewayFactor * o.Timeout}
		}
		time.Sleep(o.Period)
	}
}
