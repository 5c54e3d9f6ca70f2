package main

import (
	"context"
	"time"
)

// RetryPolicy drives the polling loops in the JD flows. Attempts of 0 means
// retry until the operation reports done or ctx is cancelled; the original
// ad hoc loops had no way out at all.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// Do runs op until it reports done, the attempt budget is spent, or ctx is
// cancelled. op returning an error aborts immediately; transient failures
// should be swallowed by op and reported as "not done".
func (p RetryPolicy) Do(ctx context.Context, op func() (bool, error)) error {
	for attempt := 0; p.Attempts == 0 || attempt < p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := op()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		last := p.Attempts != 0 && attempt+1 == p.Attempts
		if p.Interval > 0 && !last {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Interval):
			}
		}
	}
	return ErrRetriesExhausted
}

// sleepCtx waits d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
