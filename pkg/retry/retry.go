// Package retry applies one bounded retry policy to operations that may fail
// transiently, so call sites do not grow their own ad-hoc loops.
package retry

import (
	"context"
	"time"
)

const backoffFactor = 2

// Policy bounds repeated attempts of a single operation.
type Policy struct {
	// Attempts is the total attempt budget, including the first call.
	// Values below 1 behave as 1.
	Attempts int
	// Backoff is the delay before the first retry; it doubles after each
	// failed attempt.
	Backoff time.Duration
	// MaxBackoff caps the growing delay. Zero means uncapped.
	MaxBackoff time.Duration
	// Retryable reports whether an error is worth another attempt.
	// Nil treats every error as retryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the attempt budget is exhausted, a
// non-retryable error occurs, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Backoff

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		// An attempt may run under its own deadline, so a context error
		// inside err does not mean the caller gave up. Only the outer
		// context decides that.
		if ctx.Err() != nil {
			return err
		}

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		if attempt == attempts {
			break
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= backoffFactor
			if p.MaxBackoff > 0 && delay > p.MaxBackoff {
				delay = p.MaxBackoff
			}
		}
	}

	return err
}
