package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Poll when the check never succeeded within the
// attempt budget. Callers treat it as "submitted but unconfirmed", not as a
// hard failure.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Do invokes op up to attempts times, sleeping baseDelay*2^i between
// failures. The last error is returned when every attempt fails. The context
// is checked between attempts; once op is running it is not interrupted.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var last error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if last = op(ctx); last == nil {
			return nil
		}
	}
	return last
}

// Poll invokes check at a fixed interval until it reports done, up to
// attempts times. Errors from check are swallowed; polling is best-effort by
// design. Returns ErrExhausted when the budget runs out.
func Poll(ctx context.Context, attempts int, interval time.Duration, check func(ctx context.Context) (bool, error)) error {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		done, err := check(ctx)
		if err != nil {
			continue
		}
		if done {
			return nil
		}
	}
	return ErrExhausted
}
