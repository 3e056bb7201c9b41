// Package poll implements the wait loop shared by submit-then-poll adapters.
//
// The loop is timer-based rather than busy-spinning, so many concurrent
// generations can be in flight without each pinning a thread, and it stops
// promptly when the caller's context is cancelled.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExceeded is returned when every attempt completed without the
// check reporting done. Adapters translate it to their timeout error.
var ErrBudgetExceeded = errors.New("poll budget exceeded")

// Check inspects the job once. done=true stops the loop with success; a
// non-nil error stops it with that error.
type Check func(ctx context.Context, attempt int) (done bool, err error)

// Run waits interval between attempts and invokes check up to maxAttempts
// times. The first wait happens before the first check, matching providers
// whose jobs are never complete immediately after submission.
func Run(ctx context.Context, interval time.Duration, maxAttempts int, check Check) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		timer.Reset(interval)
	}
	return ErrBudgetExceeded
}
