package transport

import (
	"context"

	"github.com/pkg/errors"
)

// RateLimiter blocks until a request may proceed
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// RateLimit makes every attempt wait for the limiter. A nil limiter disables the stage.
func RateLimit(limiter RateLimiter) Middleware {
	if limiter == nil {
		return nil
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limiter")
			}
			return next(ctx, req)
		}
	}
}
