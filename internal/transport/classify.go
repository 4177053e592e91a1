package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/notify"
	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/getsentry/sentry-go"
)

// User-facing messages per status
const (
	MsgNetwork        = "Unable to connect to the server. Please check your internet connection."
	MsgBadRequest     = "Bad request. Please check your input."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgForbidden      = "You do not have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgConflict       = "This resource conflicts with an existing one."
	MsgValidation     = "Validation failed. Please check your input."
	MsgRateLimited    = "Too many requests. Please slow down and try again shortly."
	MsgInternal       = "Internal server error. Please try again later."
	MsgBadGateway     = "Bad gateway. The server is temporarily unreachable."
	MsgUnavailable    = "Service unavailable. Please try again later."
	MsgGatewayTimeout = "Gateway timeout. The server took too long to respond."
	MsgUnexpected     = "An unexpected error occurred."
	MsgCancelled      = "The request was cancelled."
)

// sessionEndpoints never clear the session on 401 or redirect on 403, whatever the
// credential list says. Logout runs in the background after the login redirect.
var sessionEndpoints = []string{types.RefreshTokenEndpoint, types.LogoutEndpoint}

// SessionClearer drops the local session
type SessionClearer interface {
	Clear()
}

// ClassifyOptions configures the classification stage
type ClassifyOptions struct {
	Notifier  notify.Notifier
	Session   SessionClearer
	Navigator types.Navigator
	// Location reports where the user currently is, for the login returnUrl
	Location func() string
	// Credentials are endpoints whose 401 means bad credentials rather than an expired session
	Credentials []string
	Logger      types.Logger
	// CaptureErrors sends connectivity and server failures to Sentry
	CaptureErrors bool
	Now           func() time.Time
}

type classifier struct {
	notifier      notify.Notifier
	session       SessionClearer
	navigator     types.Navigator
	location      func() string
	credentials   []string
	logger        types.Logger
	captureErrors bool
	now           func() time.Time
}

// Classify turns every failure into a *types.EnhancedError, tells the user
// about it and reacts to authorization failures. The error is always returned.
func Classify(opts ClassifyOptions) Middleware {
	c := &classifier{
		notifier:      opts.Notifier,
		session:       opts.Session,
		navigator:     opts.Navigator,
		location:      opts.Location,
		credentials:   opts.Credentials,
		logger:        types.LoggerOrNop(opts.Logger),
		captureErrors: opts.CaptureErrors,
		now:           opts.Now,
	}
	if c.notifier == nil {
		c.notifier = notify.Nop
	}
	if c.credentials == nil {
		c.credentials = types.DefaultExemptEndpoints()
	}
	if c.now == nil {
		c.now = time.Now
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err == nil {
				return resp, nil
			}
			return nil, c.handle(ctx, req, err)
		}
	}
}

func (c *classifier) handle(ctx context.Context, req *Request, err error) error {
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		var body []byte
		var original *HTTPError
		if errors.As(refreshErr.Original, &original) {
			body = original.Body
		}
		e := c.enhance(req, http.StatusUnauthorized, body, err)
		c.react(ctx, req, e)
		return e
	}

	// already handled by a nested pipeline call
	var enhanced *types.EnhancedError
	if errors.As(err, &enhanced) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return &types.EnhancedError{
			Message:   MsgCancelled,
			Timestamp: c.now(),
			URL:       req.URL(),
			Method:    req.Method(),
			RequestID: req.ID(),
			Err:       err,
		}
	}

	status := 0
	var body []byte
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.StatusCode
		body = httpErr.Body
	}

	e := c.enhance(req, status, body, err)
	c.react(ctx, req, e)
	return e
}

func (c *classifier) enhance(req *Request, status int, body []byte, cause error) *types.EnhancedError {
	serverMsg, fields := parseErrorBody(body)
	return &types.EnhancedError{
		StatusCode:  status,
		Message:     c.message(req, status, serverMsg),
		Timestamp:   c.now(),
		URL:         req.URL(),
		Method:      req.Method(),
		RequestID:   req.ID(),
		RawBody:     body,
		FieldErrors: fields,
		Err:         cause,
	}
}

func (c *classifier) message(req *Request, status int, serverMsg string) string {
	switch status {
	case 0:
		return MsgNetwork
	case http.StatusBadRequest:
		return orDefault(serverMsg, MsgBadRequest)
	case http.StatusUnauthorized:
		if IsExempt(req.Path(), c.credentials) {
			return orDefault(serverMsg, MsgSessionExpired)
		}
		return MsgSessionExpired
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusNotFound:
		return MsgNotFound
	case http.StatusConflict:
		return orDefault(serverMsg, MsgConflict)
	case http.StatusUnprocessableEntity:
		return MsgValidation
	case http.StatusTooManyRequests:
		return MsgRateLimited
	case http.StatusInternalServerError:
		return MsgInternal
	case http.StatusBadGateway:
		return MsgBadGateway
	case http.StatusServiceUnavailable:
		return MsgUnavailable
	case http.StatusGatewayTimeout:
		return MsgGatewayTimeout
	}

	if serverMsg != "" {
		return serverMsg
	}
	if status >= 500 {
		if desc := httpStatusDescription(status); desc != "" {
			return fmt.Sprintf("Server error: %d (%s)", status, desc)
		}
		return fmt.Sprintf("Server error: %d", status)
	}
	return MsgUnexpected
}

func (c *classifier) react(ctx context.Context, req *Request, e *types.EnhancedError) {
	c.logger.Debug("Classified API failure",
		"method", e.Method,
		"url", e.URL,
		"request_id", e.RequestID,
		"status", e.StatusCode,
		"message", e.Message,
	)

	if !req.SkipToast() {
		c.notify(e)
	}

	switch e.StatusCode {
	case http.StatusUnauthorized:
		// a 401 from a credential endpoint means bad input, not a dead session
		if IsExempt(req.Path(), c.credentials) || IsExempt(req.Path(), sessionEndpoints) {
			break
		}
		if c.session != nil {
			c.session.Clear()
		}
		if c.navigator != nil {
			query := c.returnQuery()
			Defer(ctx, func() { c.navigator.Navigate(types.RouteLogin, query) })
		}
	case http.StatusForbidden:
		if IsExempt(req.Path(), sessionEndpoints) {
			break
		}
		if c.navigator != nil {
			Defer(ctx, func() { c.navigator.Navigate(types.RouteUnauthorized, nil) })
		}
	}

	if c.captureErrors && (e.StatusCode == 0 || e.StatusCode >= 500) {
		c.capture(ctx, req, e)
	}
}

func (c *classifier) notify(e *types.EnhancedError) {
	if e.StatusCode == http.StatusUnprocessableEntity {
		if fms := e.FieldMessages(); len(fms) > 0 {
			for _, fm := range fms {
				c.notifier.Notify(notify.Notification{
					Level:   notify.LevelWarning,
					Title:   "Validation error",
					Field:   fm.Field,
					Message: fm.Message,
				})
			}
			return
		}
	}

	c.notifier.Notify(notify.Notification{
		Level:   notificationLevel(e.StatusCode),
		Title:   notificationTitle(e.StatusCode),
		Message: e.Message,
	})
}

func (c *classifier) returnQuery() url.Values {
	if c.location == nil {
		return nil
	}
	loc := c.location()
	if loc == "" || endpointPath(loc) == types.RouteLogin {
		return nil
	}
	return url.Values{types.ReturnURLParam: {loc}}
}

func (c *classifier) capture(ctx context.Context, req *Request, e *types.EnhancedError) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("http.method", req.Method())
		scope.SetTag("http.status_code", strconv.Itoa(e.StatusCode))
		scope.SetTag("request_id", req.ID())
		scope.SetContext("request", map[string]interface{}{
			"url":    req.URL(),
			"method": req.Method(),
		})
		hub.CaptureException(e)
	})
}

func notificationLevel(status int) notify.Level {
	switch status {
	case http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusUnprocessableEntity:
		return notify.LevelWarning
	default:
		return notify.LevelError
	}
}

func notificationTitle(status int) string {
	switch {
	case status == 0:
		return "Connection error"
	case status == http.StatusUnauthorized:
		return "Authentication"
	case status == http.StatusForbidden:
		return "Access denied"
	case status == http.StatusNotFound:
		return "Not found"
	case status == http.StatusUnprocessableEntity:
		return "Validation error"
	case status == http.StatusTooManyRequests:
		return "Slow down"
	case status >= 500:
		return "Server error"
	default:
		return "Error"
	}
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// httpStatusDescription returns a human-readable description for 5xx codes,
// including the Cloudflare-specific ones.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
		527: "Railgun Error",
		530: "Origin DNS Error",
	}
	return descriptions[statusCode]
}
