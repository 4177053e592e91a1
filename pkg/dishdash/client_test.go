package dishdash

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/dishdash-go/internal/notify"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

// fakeAPI counts hits per path and dispatches to per-path handlers
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]*atomic.Int32
	server   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]*atomic.Int32),
	}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		h, ok := api.handlers[r.URL.Path]
		counter, seen := api.hits[r.URL.Path]
		if !seen {
			counter = &atomic.Int32{}
			api.hits[r.URL.Path] = counter
		}
		api.mu.Unlock()

		counter.Add(1)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handle(path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = h
}

func (a *fakeAPI) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.hits[path]; ok {
		return int(c.Load())
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func loginHandler(role Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]interface{}{"id": "u1", "email": "ana@example.com", "role": role},
		})
	}
}

type testClient struct {
	*Client
	api   *fakeAPI
	notes *notify.Recorder

	navMu     sync.Mutex
	locations []string
}

func (tc *testClient) visited() []string {
	tc.navMu.Lock()
	defer tc.navMu.Unlock()
	return append([]string(nil), tc.locations...)
}

func newTestClient(t *testing.T, opts *ClientOptions) *testClient {
	t.Helper()

	tc := &testClient{api: newFakeAPI(t), notes: &notify.Recorder{}}
	if opts == nil {
		opts = &ClientOptions{}
	}
	opts.BaseURL = tc.api.server.URL
	opts.Notifier = tc.notes
	opts.OnNavigate = func(loc Location) {
		tc.navMu.Lock()
		defer tc.navMu.Unlock()
		tc.locations = append(tc.locations, loc.String())
	}
	if opts.RetryConfig == nil {
		opts.RetryConfig = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxWait: 2 * time.Millisecond}
	}
	if opts.Tracker == nil {
		opts.Tracker = &TrackerConfig{InitialInterval: 2 * time.Millisecond, MaxInterval: 5 * time.Millisecond}
	}

	c, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	tc.Client = c
	return tc
}

func (tc *testClient) login(t *testing.T, role Role) {
	t.Helper()
	tc.api.handle(types.LoginEndpoint, loginHandler(role))
	_, err := tc.Auth.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(nil)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Auth)
	assert.NotNil(t, c.Meals)
	assert.NotNil(t, c.Orders)
	assert.Equal(t, DefaultBaseURL, c.options.BaseURL)
	assert.Equal(t, DefaultTimeout, c.options.HTTPClient.Timeout)
	assert.NotEmpty(t, c.options.DeviceID)
	assert.Equal(t, StateAnonymous, c.Auth.State())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(&ClientOptions{BaseURL: "::nope"})
	assert.Error(t, err)
}

func TestClient_LoginNavigatesToDashboard(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleCustomer, "/customer/dashboard"},
		{RoleCook, "/cook/dashboard"},
		{RoleDelivery, "/delivery/dashboard"},
		{RoleAdmin, "/admin/dashboard"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			tc := newTestClient(t, nil)
			tc.login(t, tt.role)

			assert.Equal(t, tt.want, tc.Location().Path)
			assert.Equal(t, []string{tt.want}, tc.visited())
			assert.True(t, tc.Session().Authenticated())
			assert.Equal(t, StateAuthenticated, tc.Auth.State())
		})
	}
}

func TestClient_NavigateAppliesGuards(t *testing.T) {
	tc := newTestClient(t, nil)

	tc.Navigate("/admin/users", nil)
	assert.Equal(t, "/auth/login?returnUrl=%2Fadmin%2Fusers", tc.Location().String())

	tc.login(t, RoleCook)
	tc.Navigate("/admin/users", nil)
	assert.Equal(t, "/unauthorized", tc.Location().Path)

	loc, err := tc.Resolve("/auth/login", nil)
	require.NoError(t, err)
	assert.Equal(t, "/cook/dashboard", loc.Path)
	assert.Equal(t, "/unauthorized", tc.Location().Path, "resolve does not move")
}

func TestClient_ExpiredSessionEndsAtLoginWithReturnURL(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.login(t, RoleCustomer)
	tc.Navigate("/customer/orders", nil)

	tc.api.handle(types.OrdersEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})
	tc.api.handle(types.RefreshTokenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})
	})
	tc.api.handle(types.LogoutEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := tc.Orders.List(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.True(t, IsAuthError(err))

	tc.manager.Wait()

	assert.False(t, tc.Session().Authenticated())
	assert.Equal(t, "/auth/login", tc.Location().Path)
	assert.Equal(t, "/customer/orders", tc.Location().Query.Get(types.ReturnURLParam))
	assert.Equal(t, 1, tc.api.count(types.OrdersEndpoint))
	assert.Equal(t, 1, tc.api.count(types.RefreshTokenEndpoint))
	assert.Equal(t, 1, tc.api.count(types.LogoutEndpoint))

	notes := tc.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "Your session has expired. Please log in again.", notes[0].Message)
}

func TestClient_RefreshRetriesWithNewToken(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.login(t, RoleCustomer)

	tc.api.handle(types.OrdersEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"orders": []interface{}{}, "totalCount": 0})
	})
	tc.api.handle(types.RefreshTokenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "access-2"})
	})

	list, err := tc.Orders.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
	assert.Equal(t, 2, tc.api.count(types.OrdersEndpoint))
	assert.Equal(t, "access-2", tc.Session().AccessToken)
	assert.Equal(t, "refresh-1", tc.Session().RefreshToken)
	assert.Equal(t, 0, tc.notes.Len())
}

type countingLimiter struct{ calls atomic.Int32 }

func (l *countingLimiter) Wait(context.Context) error {
	l.calls.Add(1)
	return nil
}

func TestClient_HooksRateLimiterAndHeaders(t *testing.T) {
	limiter := &countingLimiter{}
	var requests, responses atomic.Int32
	ring := keyring.NewArrayKeyring(nil)

	tc := newTestClient(t, &ClientOptions{
		Keyring:     ring,
		Headers:     map[string]string{"X-Client": "tests"},
		RateLimiter: limiter,
		Hooks: &Hooks{
			OnRequest: func(context.Context, *Request) { requests.Add(1) },
			OnResponse: func(context.Context, *Request, *Response, time.Duration) {
				responses.Add(1)
			},
		},
	})

	var got atomic.Value
	tc.api.handle("/meals/m1", func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Clone())
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "m1", "name": "Pad Thai"})
	})

	meal, err := tc.Meals.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Pad Thai", meal.Name)

	assert.Equal(t, int32(1), limiter.calls.Load())
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(1), responses.Load())
	header := got.Load().(http.Header)
	assert.Equal(t, "tests", header.Get("X-Client"))

	item, err := ring.Get(types.KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, string(item.Data), header.Get("X-Device-ID"))
}

func TestClient_SessionSurvivesRestart(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	tc := newTestClient(t, &ClientOptions{Keyring: ring})
	tc.login(t, RoleDelivery)

	restarted, err := NewClient(&ClientOptions{BaseURL: tc.api.server.URL, Keyring: ring})
	require.NoError(t, err)
	defer restarted.Close()

	assert.True(t, restarted.Auth.IsAuthenticated())
	assert.True(t, restarted.Auth.HasRole(RoleDelivery))
	assert.Equal(t, tc.options.DeviceID, restarted.options.DeviceID)

	restarted.Navigate("/", nil)
	assert.Equal(t, "/delivery/dashboard", restarted.Location().Path)
}

func TestClient_OnSessionChange(t *testing.T) {
	tc := newTestClient(t, nil)

	var mu sync.Mutex
	var seen []bool
	unsubscribe := tc.OnSessionChange(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Authenticated())
	})

	tc.login(t, RoleCustomer)
	tc.Auth.Logout(context.Background())
	unsubscribe()
	tc.login(t, RoleCustomer)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

func TestClient_RetryBacksOffWithPartialConfig(t *testing.T) {
	tc := newTestClient(t, &ClientOptions{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: 30 * time.Millisecond},
	})

	var mu sync.Mutex
	var arrivals []time.Time
	tc.api.handle(types.MealsEndpoint+"/m1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "down"})
	})

	_, err := tc.Meals.Get(context.Background(), "m1")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 3)
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), 30*time.Millisecond)
	assert.GreaterOrEqual(t, arrivals[2].Sub(arrivals[1]), 60*time.Millisecond)
}
