package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/irsalhamdi/chainacademy/api/web"
)

// Latency delays every request by d before it reaches the handler, to
// emulate a slow backend while developing clients. A zero d is a no-op.
func Latency(d time.Duration) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		if d <= 0 {
			return handler
		}

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			t := time.NewTimer(d)
			defer t.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
