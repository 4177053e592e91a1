package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/notify"
	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyWith(opts ClassifyOptions, err error) (*types.EnhancedError, error) {
	p := NewPipeline(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, err
	}, Classify(opts))
	_, got := p.Do(context.Background(), NewRequest("GET", "/meals", nil))

	var enhanced *types.EnhancedError
	if errors.As(got, &enhanced) {
		return enhanced, got
	}
	return nil, got
}

func TestClassify_Messages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"no response", 0, "", MsgNetwork},
		{"bad request with body", 400, `{"message":"Quantity must be positive"}`, "Quantity must be positive"},
		{"bad request without body", 400, "", MsgBadRequest},
		{"unauthorized", 401, `{"message":"jwt expired"}`, MsgSessionExpired},
		{"forbidden", 403, "", MsgForbidden},
		{"not found", 404, "", MsgNotFound},
		{"conflict with body", 409, `{"message":"Email already registered"}`, "Email already registered"},
		{"conflict without body", 409, "", MsgConflict},
		{"validation", 422, `{"message":"nope"}`, MsgValidation},
		{"rate limited", 429, "", MsgRateLimited},
		{"internal", 500, `{"message":"Database connection failed"}`, MsgInternal},
		{"bad gateway", 502, "", MsgBadGateway},
		{"unavailable", 503, "", MsgUnavailable},
		{"gateway timeout", 504, "", MsgGatewayTimeout},
		{"cloudflare", 525, `<html>SSL</html>`, "Server error: 525 (SSL Handshake Failed)"},
		{"unknown 5xx", 599, "", "Server error: 599"},
		{"other 5xx with body", 507, `{"error":"disk full"}`, "disk full"},
		{"teapot", 418, "", MsgUnexpected},
		{"message array", 400, `{"message":["a is required","b is invalid"]}`, "a is required; b is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enhanced, _ := classifyWith(ClassifyOptions{}, &HTTPError{StatusCode: tt.status, Method: "GET", URL: "/meals", Body: []byte(tt.body)})
			require.NotNil(t, enhanced)
			assert.Equal(t, tt.status, enhanced.StatusCode)
			assert.Equal(t, tt.expected, enhanced.Message)
			assert.Equal(t, "GET", enhanced.Method)
			assert.Equal(t, "/meals", enhanced.URL)
			assert.NotEmpty(t, enhanced.RequestID)
		})
	}
}

func TestClassify_SentinelMatching(t *testing.T) {
	enhanced, err := classifyWith(ClassifyOptions{}, &HTTPError{StatusCode: 404})
	require.NotNil(t, enhanced)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = classifyWith(ClassifyOptions{}, &HTTPError{StatusCode: 0})
	assert.True(t, errors.Is(err, types.ErrNetwork))
}

func TestClassify_ValidationNotifications(t *testing.T) {
	t.Run("one per field message", func(t *testing.T) {
		notes := &notify.Recorder{}
		body := `{"message":"Validation failed","errors":{"password":["too short","needs a digit"],"email":"already taken"}}`

		enhanced, _ := classifyWith(ClassifyOptions{Notifier: notes}, &HTTPError{StatusCode: 422, Body: []byte(body)})
		require.NotNil(t, enhanced)

		all := notes.All()
		require.Len(t, all, 3)
		assert.Equal(t, "email", all[0].Field)
		assert.Equal(t, "already taken", all[0].Message)
		assert.Equal(t, "password", all[1].Field)
		assert.Equal(t, "too short", all[1].Message)
		assert.Equal(t, "needs a digit", all[2].Message)
		assert.Len(t, enhanced.FieldErrors["password"], 2)
	})

	t.Run("generic without field map", func(t *testing.T) {
		notes := &notify.Recorder{}
		_, _ = classifyWith(ClassifyOptions{Notifier: notes}, &HTTPError{StatusCode: 422, Body: []byte(`{"message":"bad"}`)})

		all := notes.All()
		require.Len(t, all, 1)
		assert.Equal(t, MsgValidation, all[0].Message)
		assert.Empty(t, all[0].Field)
	})
}

func TestClassify_SkipToast(t *testing.T) {
	notes := &notify.Recorder{}
	p := NewPipeline(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, &HTTPError{StatusCode: 500}
	}, Classify(ClassifyOptions{Notifier: notes}))

	_, err := p.Do(context.Background(), NewRequest("GET", "/meals", nil).WithSkipToast())
	require.Error(t, err)
	assert.Zero(t, notes.Len())
}

func TestClassify_UnauthorizedClearsSessionAndRedirects(t *testing.T) {
	session := &fakeSession{token: "tok"}
	nav := &fakeNavigator{}
	var navsDuringCycle int

	observer := func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			navsDuringCycle = len(nav.all())
			return resp, err
		}
	}

	p := NewPipeline(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, &HTTPError{StatusCode: 401}
	}, observer, Classify(ClassifyOptions{
		Session:   session,
		Navigator: nav,
		Location:  func() string { return "/cook/dashboard" },
	}))

	_, err := p.Do(context.Background(), NewRequest("GET", "/orders", nil))
	require.Error(t, err)

	assert.Equal(t, 0, navsDuringCycle)
	assert.Equal(t, 1, session.clears)
	assert.Empty(t, session.AccessToken())

	navs := nav.all()
	require.Len(t, navs, 1)
	assert.Equal(t, types.RouteLogin, navs[0].path)
	assert.Equal(t, "/cook/dashboard", navs[0].query.Get(types.ReturnURLParam))
}

func TestClassify_UnauthorizedOnLoginPageHasNoReturnURL(t *testing.T) {
	nav := &fakeNavigator{}
	_, _ = classifyWith(ClassifyOptions{
		Navigator: nav,
		Location:  func() string { return "/auth/login?returnUrl=%2Forders" },
	}, &HTTPError{StatusCode: 401})

	navs := nav.all()
	require.Len(t, navs, 1)
	assert.Nil(t, navs[0].query)
}

func TestClassify_RefreshEndpointUnauthorizedLeavesSession(t *testing.T) {
	session := &fakeSession{token: "tok"}
	nav := &fakeNavigator{}
	p := NewPipeline(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, &HTTPError{StatusCode: 401}
	}, Classify(ClassifyOptions{Session: session, Navigator: nav}))

	_, err := p.Do(context.Background(), NewRequest("POST", types.RefreshTokenEndpoint, nil))
	require.Error(t, err)
	assert.Equal(t, 0, session.clears)
	assert.Empty(t, nav.all())
}

func TestClassify_ForbiddenRedirects(t *testing.T) {
	session := &fakeSession{token: "tok"}
	nav := &fakeNavigator{}
	_, _ = classifyWith(ClassifyOptions{Session: session, Navigator: nav}, &HTTPError{StatusCode: http.StatusForbidden})

	navs := nav.all()
	require.Len(t, navs, 1)
	assert.Equal(t, types.RouteUnauthorized, navs[0].path)
	assert.Equal(t, 0, session.clears)
}

func TestClassify_LogoutFailureDoesNotNavigate(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			session := &fakeSession{token: "tok"}
			nav := &fakeNavigator{}
			notes := &notify.Recorder{}
			p := NewPipeline(func(ctx context.Context, req *Request) (*Response, error) {
				return nil, &HTTPError{StatusCode: status}
			}, Classify(ClassifyOptions{Session: session, Navigator: nav, Notifier: notes}))

			req := NewRequest("POST", types.LogoutEndpoint, nil).WithSkipToast().WithSkipRetry()
			_, err := p.Do(context.Background(), req)
			var enhanced *types.EnhancedError
			require.True(t, errors.As(err, &enhanced))
			assert.Equal(t, status, enhanced.StatusCode)

			assert.Empty(t, nav.all())
			assert.Equal(t, 0, session.clears)
			assert.Empty(t, notes.All())
		})
	}
}

func TestClassify_PassesEnhancedErrorsThrough(t *testing.T) {
	notes := &notify.Recorder{}
	original := &types.EnhancedError{StatusCode: 500, Message: "already handled"}

	enhanced, _ := classifyWith(ClassifyOptions{Notifier: notes}, original)
	assert.Same(t, original, enhanced)
	assert.Zero(t, notes.Len())
}

func TestClassify_CancelledIsSilent(t *testing.T) {
	notes := &notify.Recorder{}
	enhanced, err := classifyWith(ClassifyOptions{Notifier: notes}, &HTTPError{Err: context.Canceled})
	require.NotNil(t, enhanced)
	assert.Equal(t, MsgCancelled, enhanced.Message)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, notes.Len())
}

func TestClassify_Timestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enhanced, _ := classifyWith(ClassifyOptions{Now: func() time.Time { return fixed }}, &HTTPError{StatusCode: 500})
	require.NotNil(t, enhanced)
	assert.Equal(t, fixed, enhanced.Timestamp)
}
