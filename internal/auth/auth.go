package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/session"
	"github.com/eshaffer321/dishdash-go/internal/token"
	"github.com/eshaffer321/dishdash-go/internal/transport"
	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// logoutTimeout bounds the best-effort server-side logout call
const logoutTimeout = 10 * time.Second

// ErrMissingToken is returned when the server answers an auth call without an access token
var ErrMissingToken = errors.New("no access token in response")

// State of the auth session
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

// Credentials for login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterParams for a new account
type RegisterParams struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone,omitempty"`
	Role      types.Role `json:"role"`
}

// ProfileUpdate carries the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// Response is what login, register and refresh return
type Response struct {
	User         *types.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Options for the manager
type Options struct {
	Doer      transport.Doer
	Store     *session.Store
	Navigator types.Navigator
	Logger    types.Logger
}

// Manager drives login, registration, logout and token refresh, keeping the
// session store and navigation in step with the server.
type Manager struct {
	doer      transport.Doer
	store     *session.Store
	navigator types.Navigator
	logger    types.Logger

	mu        sync.Mutex
	busy      bool
	listeners map[int]func(State)
	nextID    int

	refreshGroup singleflight.Group
	pending      sync.WaitGroup
}

// NewManager creates a new auth manager
func NewManager(opts Options) *Manager {
	return &Manager{
		doer:      opts.Doer,
		store:     opts.Store,
		navigator: opts.Navigator,
		logger:    types.LoggerOrNop(opts.Logger),
		listeners: make(map[int]func(State)),
	}
}

// State returns the current state of the session
func (m *Manager) State() State {
	if m.IsBusy() {
		return StateAuthenticating
	}
	if m.store.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateAnonymous
}

// IsBusy reports whether a login or registration is in flight
func (m *Manager) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// OnStateChange registers fn to run whenever the busy flag or the session changes
func (m *Manager) OnStateChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	unsubscribe := m.store.Subscribe(func(session.Snapshot) {
		fn(m.State())
	})

	return func() {
		unsubscribe()
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) setBusy(busy bool) {
	m.mu.Lock()
	if m.busy == busy {
		m.mu.Unlock()
		return
	}
	m.busy = busy
	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	state := m.State()
	for _, fn := range listeners {
		fn(state)
	}
}

// Login authenticates with email and password and navigates to the role's dashboard
func (m *Manager) Login(ctx context.Context, creds Credentials) (*types.User, error) {
	req, err := transport.NewJSONRequest(http.MethodPost, types.LoginEndpoint, creds)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Login request", "email", creds.Email)
	return m.authenticate(ctx, req, creds.Email)
}

// Register creates an account, signs in and navigates to the role's dashboard
func (m *Manager) Register(ctx context.Context, params RegisterParams) (*types.User, error) {
	req, err := transport.NewJSONRequest(http.MethodPost, types.RegisterEndpoint, params)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Register request", "email", params.Email, "role", params.Role)
	return m.authenticate(ctx, req, params.Email)
}

// authenticate runs one login-style call. The store is only written on success.
func (m *Manager) authenticate(ctx context.Context, req *transport.Request, email string) (*types.User, error) {
	m.setBusy(true)

	resp, err := m.doer.Do(ctx, req)
	if err != nil {
		m.setBusy(false)
		m.logger.Warn("Authentication failed", "email", email, "error", err)
		return nil, err
	}

	var ar Response
	if err := resp.Decode(&ar); err != nil {
		m.setBusy(false)
		return nil, err
	}
	if ar.AccessToken == "" {
		m.setBusy(false)
		return nil, ErrMissingToken
	}

	user := ar.User
	if user == nil {
		user = userFromToken(ar.AccessToken)
	}

	m.store.SetSession(ar.AccessToken, ar.RefreshToken, user)
	m.setBusy(false)

	m.logger.Info("Login successful", "email", email)

	var role types.Role
	if user != nil {
		role = user.Role
	}
	m.navigate(ctx, types.DashboardRoute(role), nil)

	return user.Clone(), nil
}

// Logout clears the session before anything else, sends the user to the
// login page and tells the server in the background when there is a refresh
// token to revoke. The server call never affects the outcome.
func (m *Manager) Logout(ctx context.Context) {
	refreshToken := m.store.RefreshToken()
	m.store.Clear()
	m.logger.Info("Logged out")

	m.navigate(ctx, types.RouteLogin, nil)

	if refreshToken == "" {
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		// detached from the caller: the pipeline call that triggered logout may already be done
		bg, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()

		req, err := transport.NewJSONRequest(http.MethodPost, types.LogoutEndpoint, map[string]string{
			"refreshToken": refreshToken,
		})
		if err != nil {
			return
		}

		if _, err := m.doer.Do(bg, req.WithSkipToast().WithSkipRetry()); err != nil {
			m.logger.Debug("Server-side logout failed", "error", err)
		}
	}()
}

// Wait blocks until background logout calls have finished
func (m *Manager) Wait() {
	m.pending.Wait()
}

// RefreshToken exchanges the refresh token for a new access token.
// Concurrent callers share a single refresh call. Any failure logs the user out.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	v, err, shared := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if shared {
		m.logger.Debug("Joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	refreshToken := m.store.RefreshToken()
	if refreshToken == "" {
		m.logger.Warn("No refresh token available, logging out")
		m.Logout(ctx)
		return "", types.ErrNoRefreshToken
	}

	req, err := transport.NewJSONRequest(http.MethodPost, types.RefreshTokenEndpoint, map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return "", err
	}

	resp, err := m.doer.Do(ctx, req.WithSkipToast())
	if err != nil {
		m.logger.Warn("Token refresh failed, logging out", "error", err)
		m.Logout(ctx)
		return "", err
	}

	var ar Response
	if err := resp.Decode(&ar); err != nil {
		m.Logout(ctx)
		return "", err
	}
	if ar.AccessToken == "" {
		m.Logout(ctx)
		return "", ErrMissingToken
	}

	m.store.UpdateTokens(ar.AccessToken, ar.RefreshToken)
	if ar.User != nil {
		m.store.SetUser(ar.User)
	}

	m.logger.Info("Access token refreshed", "rotated", ar.RefreshToken != "")
	return ar.AccessToken, nil
}

// GetProfile fetches the current user and replaces the stored one
func (m *Manager) GetProfile(ctx context.Context) (*types.User, error) {
	resp, err := m.doer.Do(ctx, transport.NewRequest(http.MethodGet, types.ProfileEndpoint, nil))
	if err != nil {
		return nil, err
	}

	user, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}

	m.store.SetUser(user)
	return user.Clone(), nil
}

// UpdateProfile patches the profile and replaces the stored user with the server's copy
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*types.User, error) {
	req, err := transport.NewJSONRequest(http.MethodPatch, types.ProfileEndpoint, update)
	if err != nil {
		return nil, err
	}

	resp, err := m.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}

	m.store.SetUser(user)
	m.logger.Info("Profile updated", "user_id", user.ID)
	return user.Clone(), nil
}

// ForgotPassword asks the server to email a reset link
func (m *Manager) ForgotPassword(ctx context.Context, email string) (string, error) {
	return m.postMessage(ctx, types.ForgotPasswordEndpoint, map[string]string{"email": email})
}

// ResetPassword sets a new password using the emailed reset token
func (m *Manager) ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error) {
	return m.postMessage(ctx, types.ResetPasswordEndpoint, map[string]string{
		"token":       resetToken,
		"newPassword": newPassword,
	})
}

// VerifyEmail confirms an email address with the emailed verification token
func (m *Manager) VerifyEmail(ctx context.Context, verifyToken string) (string, error) {
	return m.postMessage(ctx, types.VerifyEmailEndpoint, map[string]string{"token": verifyToken})
}

func (m *Manager) postMessage(ctx context.Context, endpoint string, body interface{}) (string, error) {
	req, err := transport.NewJSONRequest(http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	resp, err := m.doer.Do(ctx, req)
	if err != nil {
		return "", err
	}

	var mr messageResponse
	if err := resp.Decode(&mr); err != nil {
		return "", err
	}
	return mr.Message, nil
}

// CurrentUser returns the stored user, or nil when signed out
func (m *Manager) CurrentUser() *types.User {
	return m.store.User()
}

// IsAuthenticated reports whether a session is held
func (m *Manager) IsAuthenticated() bool {
	return m.store.IsAuthenticated()
}

// HasRole reports whether the signed-in user has role
func (m *Manager) HasRole(role types.Role) bool {
	current, ok := m.store.Role()
	return ok && current == role
}

// HasAnyRole reports whether the signed-in user has one of roles
func (m *Manager) HasAnyRole(roles ...types.Role) bool {
	current, ok := m.store.Role()
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == current {
			return true
		}
	}
	return false
}

// navigate defers to the end of the current pipeline call, or runs now outside one
func (m *Manager) navigate(ctx context.Context, path string, query url.Values) {
	if m.navigator == nil {
		return
	}
	transport.Defer(ctx, func() {
		m.navigator.Navigate(path, query)
	})
}

// decodeUser accepts either a bare user or one wrapped in {"user": ...}
func decodeUser(resp *transport.Response) (*types.User, error) {
	var wrapped struct {
		User *types.User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var user types.User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	if user.ID == "" && user.Email == "" {
		return nil, errors.New("no user in response")
	}
	return &user, nil
}

// userFromToken builds a minimal identity from token claims when the server omits the user
func userFromToken(accessToken string) *types.User {
	payload, err := token.Decode(accessToken)
	if err != nil {
		return nil
	}
	return &types.User{
		ID:    payload.Subject,
		Email: payload.Email,
		Role:  types.Role(payload.Role),
	}
}
