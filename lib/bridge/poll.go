package bridge

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned when a poll loop runs out of attempts.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// pollUntil calls fn up to attempts times, sleeping interval between calls,
// until fn reports done. fn errors abort the loop immediately; fn returning
// (false, nil) means "not yet, keep polling".
func pollUntil(ctx context.Context, interval time.Duration, attempts int, fn func(context.Context) (bool, error)) error {
	for i := 0; i < attempts; i++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrPollExhausted
}
