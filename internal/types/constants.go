package types

import (
	"time"
)

const (
	// DefaultBaseURL is the default DishDash API base URL
	DefaultBaseURL = "https://api.dishdash.app"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "dishdash-go/1.0.0"
)

// Retry defaults
const (
	// DefaultMaxRetries is the number of additional attempts for a retryable request
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the delay before the first retry; each further retry doubles it
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRetryMaxWait caps a single backoff delay
	DefaultRetryMaxWait = 30 * time.Second
)

// API endpoints
const (
	LoginEndpoint          = "/auth/login"
	RegisterEndpoint       = "/auth/register"
	RefreshTokenEndpoint   = "/auth/refresh-token"
	LogoutEndpoint         = "/auth/logout"
	ProfileEndpoint        = "/auth/profile"
	ForgotPasswordEndpoint = "/auth/forgot-password"
	ResetPasswordEndpoint  = "/auth/reset-password"
	VerifyEmailEndpoint    = "/auth/verify-email"
	MealsEndpoint          = "/meals"
	OrdersEndpoint         = "/orders"
)

// Client-side routes
const (
	RouteRoot              = "/"
	RouteLogin             = "/auth/login"
	RouteRegister          = "/auth/register"
	RouteUnauthorized      = "/unauthorized"
	RouteCustomerDashboard = "/customer/dashboard"
	RouteCookDashboard     = "/cook/dashboard"
	RouteDeliveryDashboard = "/delivery/dashboard"
	RouteAdminDashboard    = "/admin/dashboard"

	// ReturnURLParam carries the originally requested location through a login redirect
	ReturnURLParam = "returnUrl"
)

// Storage keys for the persisted session
const (
	KeyringServiceName = "dishdash"

	KeyAccessToken  = "auth_access_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyUser         = "auth_user"
	KeyDeviceID     = "device_id"
)

// DefaultExemptEndpoints never carry a bearer token and never trigger refresh-on-401
func DefaultExemptEndpoints() []string {
	return []string{
		LoginEndpoint,
		RegisterEndpoint,
		RefreshTokenEndpoint,
		ForgotPasswordEndpoint,
		ResetPasswordEndpoint,
		VerifyEmailEndpoint,
		LogoutEndpoint,
	}
}
