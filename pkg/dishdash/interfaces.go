package dishdash

import (
	"context"
	"time"
)

// AuthService handles authentication and the signed-in user's profile
type AuthService interface {
	// Login authenticates and navigates to the role's dashboard
	Login(ctx context.Context, creds Credentials) (*User, error)

	// Register creates an account and signs it in
	Register(ctx context.Context, params RegisterParams) (*User, error)

	// Logout clears the session immediately and tells the server in the background
	Logout(ctx context.Context)

	// RefreshToken exchanges the refresh token for a new access token
	RefreshToken(ctx context.Context) (string, error)

	// GetProfile fetches the signed-in user and stores it
	GetProfile(ctx context.Context) (*User, error)

	// UpdateProfile changes profile fields and stores the result
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error)

	// ForgotPassword requests a reset email
	ForgotPassword(ctx context.Context, email string) (string, error)

	// ResetPassword sets a new password using an emailed token
	ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error)

	// VerifyEmail confirms an email address
	VerifyEmail(ctx context.Context, verifyToken string) (string, error)

	CurrentUser() *User
	IsAuthenticated() bool
	HasRole(role Role) bool
	HasAnyRole(roles ...Role) bool
	State() AuthState
	IsBusy() bool
	OnStateChange(fn func(AuthState)) func()
}

// MealService browses the meal catalogue
type MealService interface {
	// Query returns a meal query builder
	Query() MealQueryBuilder

	// Get retrieves a single meal
	Get(ctx context.Context, mealID string) (*Meal, error)
}

// MealQueryBuilder builds meal queries
type MealQueryBuilder interface {
	WithCuisine(cuisine string) MealQueryBuilder
	WithCook(cookID string) MealQueryBuilder
	MaxPrice(price float64) MealQueryBuilder
	AvailableOnly() MealQueryBuilder
	Search(query string) MealQueryBuilder
	Limit(limit int) MealQueryBuilder
	Offset(offset int) MealQueryBuilder

	// Execute runs the query
	Execute(ctx context.Context) (*MealList, error)

	// Stream pages through every match
	Stream(ctx context.Context) (<-chan *Meal, <-chan error)
}

// OrderService handles orders
type OrderService interface {
	// List retrieves the caller's orders
	List(ctx context.Context, params *ListOrdersParams) (*OrderList, error)

	// Get retrieves a single order
	Get(ctx context.Context, orderID string) (*Order, error)

	// Create places an order. It is never retried.
	Create(ctx context.Context, params *CreateOrderParams) (*Order, error)

	// Cancel cancels an order that has not been delivered
	Cancel(ctx context.Context, orderID string) (*Order, error)

	// Track starts following an order's status
	Track(ctx context.Context, orderID string) (OrderTracker, error)
}

// OrderTracker follows one order until it is delivered or cancelled
type OrderTracker interface {
	// OrderID returns the tracked order
	OrderID() string

	// Status returns the last status seen
	Status() OrderStatus

	// Wait polls until the order reaches a terminal status
	Wait(ctx context.Context, timeout time.Duration) (*Order, error)

	// Cancel stops tracking. The order itself is untouched.
	Cancel()

	// Transitions returns every status seen, oldest first
	Transitions() []OrderStatus

	// Metrics returns tracking metrics
	Metrics() TrackerMetrics
}
