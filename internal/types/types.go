package types

import (
	"net/url"
	"time"
)

// Role is a marketplace user role
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCook     Role = "cook"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is one of the known marketplace roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleCook, RoleDelivery, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole parses a string into a Role, reporting whether it is known
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.IsValid()
}

// DashboardRoute returns the landing route for a role.
// Unknown roles land on the generic root route.
func DashboardRoute(role Role) string {
	return DashboardRouteOr(role, RouteRoot)
}

// DashboardRouteOr returns the landing route for a role, or fallback when the role is unknown
func DashboardRouteOr(role Role, fallback string) string {
	switch role {
	case RoleCustomer:
		return RouteCustomerDashboard
	case RoleCook:
		return RouteCookDashboard
	case RoleDelivery:
		return RouteDeliveryDashboard
	case RoleAdmin:
		return RouteAdminDashboard
	default:
		return fallback
	}
}

// User is the server's snapshot of the authenticated identity.
// It is replaced wholesale, never patched field by field.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	DisplayName   string     `json:"displayName,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// Name returns the display name, falling back to first and last name
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Clone returns an independent copy
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// LoggerOrNop returns l, or a NopLogger when l is nil
func LoggerOrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Navigator moves the client to another route
type Navigator interface {
	Navigate(path string, query url.Values)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string, query url.Values)

// Navigate calls f(path, query)
func (f NavigatorFunc) Navigate(path string, query url.Values) {
	f(path, query)
}

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries"`
	BaseDelay  time.Duration `json:"baseDelay"`
	MaxWait    time.Duration `json:"maxWait"`
}

// DefaultRetryConfig returns the standard retry policy: 3 retries, 1s base, doubling
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryBaseDelay,
		MaxWait:    DefaultRetryMaxWait,
	}
}
