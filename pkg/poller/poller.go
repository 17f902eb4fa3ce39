package poller

import (
	"context"
	"time"
)

// Every runs fn now and then once per interval until ctx is done. An error from fn goes to
// onError and the loop keeps going. Calls never overlap.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context) error, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil && onError != nil {
			onError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
		}
	}
}
