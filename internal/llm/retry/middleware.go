package retry

import (
	"context"

	"github.com/ahrav/go-mentor/internal/llm/transport"
)

// NewMiddleware wraps a handler so every request runs under the retrier's
// class policies. Successful responses record the attempt count.
func NewMiddleware(r *Retrier) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			resp, attempts, err := Do(ctx, r, func(ctx context.Context) (*transport.Response, error) {
				return next.Handle(ctx, req)
			})
			if err != nil {
				return nil, err
			}
			resp.Attempts = attempts
			return resp, nil
		})
	}
}
