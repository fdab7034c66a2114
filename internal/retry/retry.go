// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls Do. With Base = 1s the schedule is: attempt 1 immediate,
// 2 after 1s, 3 after 2s, 4 after 4s...
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// Do calls fn up to p.Attempts times. It returns nil as soon as one attempt
// succeeds, ctx.Err() if the context ends while waiting, and the last error
// otherwise. Permanent errors stop the loop early.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := p.Base * time.Duration(1<<uint(i-1))
			if p.Max > 0 && wait > p.Max {
				wait = p.Max
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		lastErr = err
	}
	return lastErr
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
