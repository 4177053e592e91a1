package transport

import (
	"context"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/logging"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

// Hooks observe every attempt that reaches the network
type Hooks struct {
	OnRequest  func(ctx context.Context, req *Request)
	OnResponse func(ctx context.Context, req *Request, resp *Response, duration time.Duration)
	OnError    func(ctx context.Context, req *Request, err error, duration time.Duration)
}

// Logging records each attempt with credentials masked and fires hooks.
// Failures are logged at warn level, everything else at debug.
func Logging(logger types.Logger, hooks *Hooks) Middleware {
	logger = types.LoggerOrNop(logger)
	if hooks == nil {
		hooks = &Hooks{}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if hooks.OnRequest != nil {
				hooks.OnRequest(ctx, req)
			}

			kv := []interface{}{"method", req.Method(), "url", req.URL(), "request_id", req.ID()}
			if req.HasBody() {
				kv = append(kv, "body", truncate(logging.Mask(string(req.body))))
			}
			logger.Debug("API request", kv...)

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				status, _ := StatusOf(err)
				logger.Warn("API error",
					"method", req.Method(),
					"url", req.URL(),
					"request_id", req.ID(),
					"status", status,
					"duration", duration,
					"error", logging.Mask(err.Error()),
				)
				if hooks.OnError != nil {
					hooks.OnError(ctx, req, err, duration)
				}
				return nil, err
			}

			logger.Debug("API response",
				"method", req.Method(),
				"url", req.URL(),
				"request_id", req.ID(),
				"status", resp.StatusCode,
				"duration", duration,
				"size", len(resp.Body),
			)
			if hooks.OnResponse != nil {
				hooks.OnResponse(ctx, req, resp, duration)
			}
			return resp, nil
		}
	}
}

// truncate shortens long bodies for logging
func truncate(s string) string {
	const maxLen = 200
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
