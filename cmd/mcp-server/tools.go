package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultSearchLimit = 20
	maxTrackTimeout    = 10 * time.Minute
)

// dishdashTools holds the DishDash client and implements all tool handlers
type dishdashTools struct {
	client *dishdash.Client
}

// SearchMeals tool - browses the meal catalogue
type SearchMealsInput struct {
	Search        string  `json:"search,omitempty" jsonschema:"Free text to match against meal names and descriptions (optional)"`
	Cuisine       string  `json:"cuisine,omitempty" jsonschema:"Only meals of this cuisine, e.g. thai (optional)"`
	CookID        string  `json:"cookId,omitempty" jsonschema:"Only meals by this cook (optional)"`
	MaxPrice      float64 `json:"maxPrice,omitempty" jsonschema:"Upper price bound (optional)"`
	AvailableOnly bool    `json:"availableOnly,omitempty" jsonschema:"Only meals that can be ordered now"`
	Limit         int     `json:"limit,omitempty" jsonschema:"Maximum number of meals to return (default: 20)"`
	Offset        int     `json:"offset,omitempty" jsonschema:"Number of meals to skip for paging"`
}

type MealEntry struct {
	ID              string   `json:"id" jsonschema:"Meal ID"`
	Name            string   `json:"name" jsonschema:"Meal name"`
	Description     string   `json:"description,omitempty" jsonschema:"Meal description"`
	Cuisine         string   `json:"cuisine" jsonschema:"Cuisine"`
	Price           float64  `json:"price" jsonschema:"Price per portion"`
	Currency        string   `json:"currency,omitempty" jsonschema:"Price currency"`
	Available       bool     `json:"available" jsonschema:"Whether the meal can be ordered now"`
	PrepTimeMinutes int      `json:"prepTimeMinutes,omitempty" jsonschema:"Preparation time in minutes"`
	Rating          float64  `json:"rating,omitempty" jsonschema:"Average rating"`
	Cook            string   `json:"cook,omitempty" jsonschema:"Cook name"`
	Tags            []string `json:"tags,omitempty" jsonschema:"Meal tags"`
}

type SearchMealsOutput struct {
	Meals      []MealEntry `json:"meals" jsonschema:"Meals on this page"`
	TotalCount int         `json:"totalCount" jsonschema:"Number of meals matching the filters"`
	NextOffset int         `json:"nextOffset,omitempty" jsonschema:"Offset of the next page, when there is one"`
}

func (t *dishdashTools) SearchMeals(ctx context.Context, req *mcp.CallToolRequest, input SearchMealsInput) (*mcp.CallToolResult, SearchMealsOutput, error) {
	query := t.client.Meals.Query()
	if input.Search != "" {
		query = query.Search(input.Search)
	}
	if input.Cuisine != "" {
		query = query.WithCuisine(input.Cuisine)
	}
	if input.CookID != "" {
		query = query.WithCook(input.CookID)
	}
	if input.MaxPrice > 0 {
		query = query.MaxPrice(input.MaxPrice)
	}
	if input.AvailableOnly {
		query = query.AvailableOnly()
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	page, err := query.Limit(limit).Offset(input.Offset).Execute(ctx)
	if err != nil {
		return nil, SearchMealsOutput{}, fmt.Errorf("failed to search meals: %w", err)
	}

	out := SearchMealsOutput{TotalCount: page.TotalCount}
	for _, m := range page.Meals {
		out.Meals = append(out.Meals, toMealEntry(m))
	}
	if page.HasMore {
		out.NextOffset = page.NextOffset
	}
	return nil, out, nil
}

type GetMealInput struct {
	MealID string `json:"mealId" jsonschema:"ID of the meal"`
}

func (t *dishdashTools) GetMeal(ctx context.Context, req *mcp.CallToolRequest, input GetMealInput) (*mcp.CallToolResult, MealEntry, error) {
	meal, err := t.client.Meals.Get(ctx, input.MealID)
	if err != nil {
		return nil, MealEntry{}, fmt.Errorf("failed to fetch meal %s: %w", input.MealID, err)
	}
	return nil, toMealEntry(meal), nil
}

func toMealEntry(m *dishdash.Meal) MealEntry {
	entry := MealEntry{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		Cuisine:         m.Cuisine,
		Price:           m.Price,
		Currency:        m.Currency,
		Available:       m.Available,
		PrepTimeMinutes: m.PrepTimeMinutes,
		Rating:          m.Rating,
		Tags:            m.Tags,
	}
	if m.Cook != nil {
		entry.Cook = m.Cook.Name
	}
	return entry
}

// ListOrders tool - the signed-in user's orders
type ListOrdersInput struct {
	Status string `json:"status,omitempty" jsonschema:"Only orders in this status: pending, confirmed, preparing, ready, out_for_delivery, delivered or cancelled (optional)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of orders to return (default: 20)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Number of orders to skip for paging"`
}

type OrderItemEntry struct {
	MealID    string  `json:"mealId" jsonschema:"Meal ID"`
	Name      string  `json:"name,omitempty" jsonschema:"Meal name"`
	Quantity  int     `json:"quantity" jsonschema:"Number of portions"`
	UnitPrice float64 `json:"unitPrice,omitempty" jsonschema:"Price per portion"`
}

type OrderEntry struct {
	ID              string           `json:"id" jsonschema:"Order ID"`
	Status          string           `json:"status" jsonschema:"Order status"`
	Total           float64          `json:"total" jsonschema:"Order total"`
	Currency        string           `json:"currency,omitempty" jsonschema:"Total currency"`
	DeliveryAddress string           `json:"deliveryAddress" jsonschema:"Delivery address"`
	DeliveryDate    string           `json:"deliveryDate,omitempty" jsonschema:"Delivery date in YYYY-MM-DD format"`
	Notes           string           `json:"notes,omitempty" jsonschema:"Notes for the cook"`
	Items           []OrderItemEntry `json:"items" jsonschema:"Ordered meals"`
	CreatedAt       time.Time        `json:"createdAt" jsonschema:"When the order was placed"`
}

type ListOrdersOutput struct {
	Orders     []OrderEntry `json:"orders" jsonschema:"Orders on this page"`
	TotalCount int          `json:"totalCount" jsonschema:"Number of orders matching the filters"`
}

func (t *dishdashTools) ListOrders(ctx context.Context, req *mcp.CallToolRequest, input ListOrdersInput) (*mcp.CallToolResult, ListOrdersOutput, error) {
	page, err := t.client.Orders.List(ctx, &dishdash.ListOrdersParams{
		Status: dishdash.OrderStatus(input.Status),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, ListOrdersOutput{}, fmt.Errorf("failed to fetch orders: %w", err)
	}

	out := ListOrdersOutput{TotalCount: page.TotalCount}
	for _, o := range page.Orders {
		out.Orders = append(out.Orders, toOrderEntry(o))
	}
	return nil, out, nil
}

type GetOrderInput struct {
	OrderID string `json:"orderId" jsonschema:"ID of the order"`
}

func (t *dishdashTools) GetOrder(ctx context.Context, req *mcp.CallToolRequest, input GetOrderInput) (*mcp.CallToolResult, OrderEntry, error) {
	order, err := t.client.Orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, OrderEntry{}, fmt.Errorf("failed to fetch order %s: %w", input.OrderID, err)
	}
	return nil, toOrderEntry(order), nil
}

// TrackOrder tool - waits for an order to be delivered or cancelled
type TrackOrderInput struct {
	OrderID        string `json:"orderId" jsonschema:"ID of the order"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" jsonschema:"How long to wait before returning the latest status (default and maximum: 600)"`
}

type TrackOrderOutput struct {
	Order       OrderEntry `json:"order" jsonschema:"Latest known state of the order"`
	Transitions []string   `json:"transitions" jsonschema:"Statuses observed while tracking, oldest first"`
	Finished    bool       `json:"finished" jsonschema:"Whether the order reached delivered or cancelled"`
}

func (t *dishdashTools) TrackOrder(ctx context.Context, req *mcp.CallToolRequest, input TrackOrderInput) (*mcp.CallToolResult, TrackOrderOutput, error) {
	timeout := time.Duration(input.TimeoutSeconds) * time.Second
	if timeout <= 0 || timeout > maxTrackTimeout {
		timeout = maxTrackTimeout
	}

	tracker, err := t.client.Orders.Track(ctx, input.OrderID)
	if err != nil {
		return nil, TrackOrderOutput{}, fmt.Errorf("failed to track order %s: %w", input.OrderID, err)
	}

	order, err := tracker.Wait(ctx, timeout)
	if err != nil && !errors.Is(err, dishdash.ErrTrackingTimeout) {
		return nil, TrackOrderOutput{}, fmt.Errorf("tracking order %s: %w", input.OrderID, err)
	}
	if order == nil {
		tracker.Cancel()
		order = &dishdash.Order{ID: tracker.OrderID(), Status: tracker.Status()}
	}

	out := TrackOrderOutput{Order: toOrderEntry(order), Finished: order.Status.IsTerminal()}
	for _, s := range tracker.Transitions() {
		out.Transitions = append(out.Transitions, string(s))
	}
	return nil, out, nil
}

func toOrderEntry(o *dishdash.Order) OrderEntry {
	entry := OrderEntry{
		ID:              o.ID,
		Status:          string(o.Status),
		Total:           o.Total,
		Currency:        o.Currency,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryDate:    o.DeliveryDate.String(),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		entry.Items = append(entry.Items, OrderItemEntry{
			MealID:    it.MealID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return entry
}

// Whoami tool - the signed-in identity
type WhoamiInput struct {
	// No input parameters needed
}

type WhoamiOutput struct {
	Authenticated bool   `json:"authenticated" jsonschema:"Whether a session is stored"`
	UserID        string `json:"userId,omitempty" jsonschema:"User ID"`
	Name          string `json:"name,omitempty" jsonschema:"Display name"`
	Email         string `json:"email,omitempty" jsonschema:"Email address"`
	Role          string `json:"role,omitempty" jsonschema:"Marketplace role: customer, cook, delivery or admin"`
}

func (t *dishdashTools) Whoami(ctx context.Context, req *mcp.CallToolRequest, input WhoamiInput) (*mcp.CallToolResult, WhoamiOutput, error) {
	user := t.client.Auth.CurrentUser()
	if !t.client.Auth.IsAuthenticated() || user == nil {
		return nil, WhoamiOutput{}, nil
	}
	return nil, WhoamiOutput{
		Authenticated: true,
		UserID:        user.ID,
		Name:          user.Name(),
		Email:         user.Email,
		Role:          string(user.Role),
	}, nil
}
