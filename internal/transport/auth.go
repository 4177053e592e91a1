package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// TokenSource supplies the current access token
type TokenSource interface {
	AccessToken() string
}

// TokenSourceFunc adapts a function to TokenSource
type TokenSourceFunc func() string

// AccessToken calls f()
func (f TokenSourceFunc) AccessToken() string {
	return f()
}

// Refresher obtains a new access token. Implementations log the user out when that fails.
type Refresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context) (string, error)

// RefreshToken calls f(ctx)
func (f RefresherFunc) RefreshToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// IsExempt reports whether path targets one of the exempt endpoints
func IsExempt(path string, exempt []string) bool {
	p := endpointPath(path)
	for _, e := range exempt {
		if e == "" {
			continue
		}
		if p == e || strings.HasSuffix(p, e) {
			return true
		}
	}
	return false
}

func endpointPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if strings.Contains(path, "://") {
		if u, err := url.Parse(path); err == nil {
			path = u.Path
		}
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// AuthAttach adds the bearer token to every non-exempt request when one exists
func AuthAttach(tokens TokenSource, exempt []string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if IsExempt(req.Path(), exempt) {
				return next(ctx, req)
			}
			if token := tokens.AccessToken(); token != "" {
				req = req.WithBearer(token)
			}
			return next(ctx, req)
		}
	}
}

// AuthRefresh cures a 401 on a non-exempt request by refreshing the access
// token once and re-issuing the request. A second 401 is returned as is.
func AuthRefresh(refresher Refresher, exempt []string, logger types.Logger) Middleware {
	logger = types.LoggerOrNop(logger)
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err == nil || IsExempt(req.Path(), exempt) {
				return resp, err
			}
			if status, ok := StatusOf(err); !ok || status != http.StatusUnauthorized {
				return resp, err
			}

			logger.Info("Access token rejected, refreshing", "method", req.Method(), "url", req.URL(), "request_id", req.ID())

			token, refreshErr := refresher.RefreshToken(ctx)
			if refreshErr != nil {
				return nil, &RefreshError{Original: err, Err: refreshErr}
			}

			return next(ctx, req.WithBearer(token))
		}
	}
}
