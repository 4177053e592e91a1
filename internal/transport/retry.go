package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/hashicorp/go-retryablehttp"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOptions configures the retry stage
type RetryOptions struct {
	Config *types.RetryConfig
	Logger types.Logger
	// Sleep defaults to a timer that honours ctx
	Sleep SleepFunc
}

// Retry re-issues idempotent reads that failed with no response or a 5xx.
// Attempt i (zero based) waits BaseDelay*2^i, capped at MaxWait. Unset
// delays fall back to the defaults; MaxRetries of zero disables the stage.
func Retry(opts RetryOptions) Middleware {
	cfg := withRetryDefaults(opts.Config)
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := types.LoggerOrNop(opts.Logger)

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Method() != http.MethodGet || req.SkipRetry() || cfg.MaxRetries <= 0 {
				return next(ctx, req)
			}

			for attempt := 0; ; attempt++ {
				resp, err := next(ctx, req)
				if err == nil {
					return resp, nil
				}
				if attempt >= cfg.MaxRetries || !isRetryable(err) || ctx.Err() != nil {
					return nil, err
				}

				delay := retryablehttp.DefaultBackoff(cfg.BaseDelay, cfg.MaxWait, attempt, nil)
				status, _ := StatusOf(err)
				logger.Warn("Retrying request",
					"url", req.URL(),
					"request_id", req.ID(),
					"status", status,
					"attempt", attempt+1,
					"max_retries", cfg.MaxRetries,
					"delay", delay,
				)

				if serr := sleep(ctx, delay); serr != nil {
					return nil, err
				}
			}
		}
	}
}

// withRetryDefaults copies cfg and fills zero delays. An unset MaxWait never
// cuts the doubling sequence short.
func withRetryDefaults(in *types.RetryConfig) types.RetryConfig {
	if in == nil {
		return *types.DefaultRetryConfig()
	}
	cfg := *in
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = types.DefaultRetryBaseDelay
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = types.DefaultRetryMaxWait
		if cfg.MaxRetries > 0 && cfg.MaxRetries < 32 {
			shift := uint(cfg.MaxRetries)
			longest := cfg.BaseDelay << shift
			if longest>>shift == cfg.BaseDelay && longest > cfg.MaxWait {
				cfg.MaxWait = longest
			}
		}
	}
	return cfg
}

// isRetryable is true for a missing response or a server error
func isRetryable(err error) bool {
	if _, ok := err.(*RefreshError); ok {
		return false
	}
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	return status == 0 || status >= 500
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
