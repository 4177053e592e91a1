package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/dishdash-go/internal/session"
	"github.com/eshaffer321/dishdash-go/internal/transport"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

// MockDoer is a mock implementation of transport.Doer
type MockDoer struct {
	mock.Mock
}

func (m *MockDoer) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transport.Response), args.Error(1)
}

func jsonResponse(t *testing.T, v interface{}) *transport.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return &transport.Response{StatusCode: http.StatusOK, Body: body}
}

func call(method, path string) interface{} {
	return mock.MatchedBy(func(req *transport.Request) bool {
		return req.Method() == method && req.Path() == path
	})
}

func newMockManager() (*Manager, *MockDoer, *session.Store, *recordingNavigator) {
	doer := new(MockDoer)
	store := session.NewStore(keyring.NewArrayKeyring(nil), nil)
	nav := &recordingNavigator{}
	return NewManager(Options{Doer: doer, Store: store, Navigator: nav}), doer, store, nav
}

func TestManager_LoginSendsCredentials(t *testing.T) {
	m, doer, store, nav := newMockManager()

	doer.On("Do", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		var creds Credentials
		_ = json.Unmarshal(req.Body(), &creds)
		return req.Path() == types.LoginEndpoint && creds.Email == "ana@example.com" && creds.Password == "secret"
	})).Return(jsonResponse(t, authBody("access-1", "refresh-1", types.RoleDelivery)), nil).Once()

	user, err := m.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, types.RoleDelivery, user.Role)
	assert.Equal(t, "access-1", store.AccessToken())
	assert.Equal(t, []string{types.RouteDeliveryDashboard}, nav.all())
	doer.AssertExpectations(t)
}

func TestManager_LoginErrorLeavesStateAnonymous(t *testing.T) {
	m, doer, store, nav := newMockManager()

	doer.On("Do", mock.Anything, call(http.MethodPost, types.LoginEndpoint)).
		Return(nil, &types.EnhancedError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}).Once()

	_, err := m.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "nope"})
	require.Error(t, err)

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, StateAnonymous, m.State())
	assert.False(t, m.IsBusy())
	assert.Empty(t, nav.all())
	doer.AssertExpectations(t)
}

func TestManager_RefreshWithoutTokenMakesNoCall(t *testing.T) {
	m, doer, _, nav := newMockManager()

	_, err := m.RefreshToken(context.Background())
	assert.ErrorIs(t, err, types.ErrNoRefreshToken)

	m.Wait()
	doer.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
	assert.Equal(t, []string{types.RouteLogin}, nav.all())
}

func TestManager_RefreshFailureRevokesInBackground(t *testing.T) {
	m, doer, store, nav := newMockManager()
	store.SetSession("access-1", "refresh-1", &types.User{ID: "u1", Role: types.RoleCustomer})

	cause := errors.New("refresh rejected")
	doer.On("Do", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		return req.Path() == types.RefreshTokenEndpoint && req.SkipToast()
	})).Return(nil, cause).Once()
	doer.On("Do", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		return req.Path() == types.LogoutEndpoint && req.SkipToast() && req.SkipRetry()
	})).Return(nil, errors.New("offline")).Once()

	_, err := m.RefreshToken(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, []string{types.RouteLogin}, nav.all())

	m.Wait()
	doer.AssertExpectations(t)
}

func TestManager_UpdateProfileSendsOnlyChangedFields(t *testing.T) {
	m, doer, store, _ := newMockManager()
	store.SetSession("access-1", "refresh-1", &types.User{ID: "u1", FirstName: "Ana", Role: types.RoleCook})

	doer.On("Do", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		var body map[string]interface{}
		_ = json.Unmarshal(req.Body(), &body)
		_, hasLast := body["lastName"]
		return req.Method() == http.MethodPatch && body["displayName"] == "Chef Ana" && !hasLast
	})).Return(jsonResponse(t, map[string]interface{}{
		"user": map[string]interface{}{"id": "u1", "firstName": "Ana", "displayName": "Chef Ana", "role": "cook"},
	}), nil).Once()

	display := "Chef Ana"
	user, err := m.UpdateProfile(context.Background(), ProfileUpdate{DisplayName: &display})
	require.NoError(t, err)

	assert.Equal(t, "Chef Ana", user.Name())
	assert.Equal(t, "Chef Ana", store.User().DisplayName)
	doer.AssertExpectations(t)
}

func TestManager_PasswordMessages(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		run      func(m *Manager) (string, error)
	}{
		{"forgot", types.ForgotPasswordEndpoint, func(m *Manager) (string, error) {
			return m.ForgotPassword(context.Background(), "ana@example.com")
		}},
		{"reset", types.ResetPasswordEndpoint, func(m *Manager) (string, error) {
			return m.ResetPassword(context.Background(), "tok", "n3w")
		}},
		{"verify", types.VerifyEmailEndpoint, func(m *Manager) (string, error) {
			return m.VerifyEmail(context.Background(), "tok")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, doer, _, _ := newMockManager()
			doer.On("Do", mock.Anything, call(http.MethodPost, tt.endpoint)).
				Return(jsonResponse(t, map[string]string{"message": "done: " + tt.name}), nil).Once()

			msg, err := tt.run(m)
			require.NoError(t, err)
			assert.Equal(t, "done: "+tt.name, msg)
			doer.AssertExpectations(t)
		})
	}
}
