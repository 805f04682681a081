// Package async holds small concurrency helpers for best-effort external
// calls.
package async

import (
	"context"
	"time"
)

// RaceTimeout runs fn and waits at most d for it to finish. If fn errors
// or the deadline passes first, fallback is returned instead; the call is
// never surfaced as a failure. fn receives a context that is cancelled
// once the race is decided.
func RaceTimeout[T any](ctx context.Context, d time.Duration, fallback T, fn func(context.Context) (T, error)) T {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return fallback
		}
		return out.value
	case <-ctx.Done():
		return fallback
	}
}
