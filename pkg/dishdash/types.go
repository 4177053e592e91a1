package dishdash

import (
	"io"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/auth"
	"github.com/eshaffer321/dishdash-go/internal/guard"
	"github.com/eshaffer321/dishdash-go/internal/notify"
	"github.com/eshaffer321/dishdash-go/internal/session"
	"github.com/eshaffer321/dishdash-go/internal/transport"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

// Re-exported so callers never import internal packages
type (
	User           = types.User
	Role           = types.Role
	Logger         = types.Logger
	RetryConfig    = types.RetryConfig
	EnhancedError  = types.EnhancedError
	FieldMessage   = types.FieldMessage
	Credentials    = auth.Credentials
	RegisterParams = auth.RegisterParams
	ProfileUpdate  = auth.ProfileUpdate
	AuthState      = auth.State
	Snapshot       = session.Snapshot
	Notification   = notify.Notification
	Notifier       = notify.Notifier
	Hooks          = transport.Hooks
	Request        = transport.Request
	Response       = transport.Response
	Route          = guard.Route
	Guard          = guard.Guard
	Location       = guard.Location
	Decision       = guard.Decision
)

// NewTerminalNotifier prints notifications to w (stderr when nil)
func NewTerminalNotifier(w io.Writer) Notifier {
	return notify.NewTerminal(w)
}

// Roles
const (
	RoleCustomer = types.RoleCustomer
	RoleCook     = types.RoleCook
	RoleDelivery = types.RoleDelivery
	RoleAdmin    = types.RoleAdmin
)

// Auth states
const (
	StateAnonymous      = auth.StateAnonymous
	StateAuthenticating = auth.StateAuthenticating
	StateAuthenticated  = auth.StateAuthenticated
)

// Meal represents a dish offered by a cook
type Meal struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Cuisine         string    `json:"cuisine"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Available       bool      `json:"available"`
	PrepTimeMinutes int       `json:"prepTimeMinutes,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Cook            *Cook     `json:"cook,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Cook is the summary of a cook shown alongside their meals
type Cook struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating,omitempty"`
}

// MealList is one page of meals
type MealList struct {
	Meals      []*Meal `json:"meals"`
	TotalCount int     `json:"totalCount"`
	HasMore    bool    `json:"hasMore"`
	NextOffset int     `json:"nextOffset"`
}

// OrderStatus is the lifecycle position of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// IsTerminal reports whether the order can no longer change
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order represents a customer order
type Order struct {
	ID              string      `json:"id"`
	Status          OrderStatus `json:"status"`
	CustomerID      string      `json:"customerId"`
	CookID          string      `json:"cookId,omitempty"`
	CourierID       string      `json:"courierId,omitempty"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	Currency        string      `json:"currency,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress"`
	DeliveryDate    Date        `json:"deliveryDate,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// OrderItem is one meal line of an order
type OrderItem struct {
	MealID    string  `json:"mealId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
}

// OrderList is one page of orders
type OrderList struct {
	Orders     []*Order `json:"orders"`
	TotalCount int      `json:"totalCount"`
	HasMore    bool     `json:"hasMore"`
	NextOffset int      `json:"nextOffset"`
}

// ListOrdersParams filters order listings
type ListOrdersParams struct {
	Status OrderStatus
	Limit  int
	Offset int
}

// CreateOrderParams are the parameters for placing an order
type CreateOrderParams struct {
	Items           []OrderItem
	DeliveryAddress string
	DeliveryDate    *time.Time
	Notes           string
}
