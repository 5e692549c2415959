package retry

import (
	"context"
	"errors"

	"github.com/ajrodado/workcrew/pkg/types"
)

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops retrying and returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, the policy gives up, the error is marked
// Permanent, or ctx is cancelled. Delays between attempts come from the
// policy and are slept on the given clock.
func Do(ctx context.Context, clock types.Clock, policy Policy, fn func(ctx context.Context) error) error {
	if clock == nil {
		clock = types.NewRealClock()
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}

		timer := clock.NewTimer(policy.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}
