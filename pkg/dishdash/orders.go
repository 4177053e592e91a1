package dishdash

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/transport"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

// orderService implements the OrderService interface
type orderService struct {
	client   *Client
	tracker  TrackerConfig
	trackers *trackerRegistry
}

func newOrderService(client *Client, cfg *TrackerConfig) *orderService {
	return &orderService{
		client:   client,
		tracker:  cfg.withDefaults(),
		trackers: newTrackerRegistry(),
	}
}

// List retrieves the caller's orders
func (s *orderService) List(ctx context.Context, params *ListOrdersParams) (*OrderList, error) {
	if params == nil {
		params = &ListOrdersParams{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultMealLimit
	}

	query := url.Values{}
	if params.Status != "" {
		query.Set("status", string(params.Status))
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(params.Offset))

	var result struct {
		Orders     []*Order `json:"orders"`
		TotalCount int      `json:"totalCount"`
	}

	if err := s.client.get(ctx, types.OrdersEndpoint, query, &result); err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	next := params.Offset + len(result.Orders)
	return &OrderList{
		Orders:     result.Orders,
		TotalCount: result.TotalCount,
		HasMore:    len(result.Orders) > 0 && next < result.TotalCount,
		NextOffset: next,
	}, nil
}

// Get retrieves a single order
func (s *orderService) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.fetch(ctx, orderID, false)
}

// fetch reads an order. Quiet reads never notify the user.
func (s *orderService) fetch(ctx context.Context, orderID string, quiet bool) (*Order, error) {
	req := transport.NewRequest(http.MethodGet, orderPath(orderID), nil)
	if quiet {
		req = req.WithSkipToast()
	}

	var order Order
	if err := s.client.send(ctx, req, &order); err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}
	if order.ID == "" {
		return nil, ErrNotFound
	}
	return &order, nil
}

// Create places an order
func (s *orderService) Create(ctx context.Context, params *CreateOrderParams) (*Order, error) {
	if params == nil || len(params.Items) == 0 {
		return nil, errors.New("an order needs at least one item")
	}

	type item struct {
		MealID   string `json:"mealId"`
		Quantity int    `json:"quantity"`
	}
	input := struct {
		Items           []item `json:"items"`
		DeliveryAddress string `json:"deliveryAddress"`
		DeliveryDate    *Date  `json:"deliveryDate,omitempty"`
		Notes           string `json:"notes,omitempty"`
	}{
		DeliveryAddress: params.DeliveryAddress,
		Notes:           params.Notes,
	}
	for _, it := range params.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		input.Items = append(input.Items, item{MealID: it.MealID, Quantity: qty})
	}
	if params.DeliveryDate != nil {
		d := NewDate(*params.DeliveryDate)
		input.DeliveryDate = &d
	}

	var order Order
	if err := s.client.sendJSON(ctx, http.MethodPost, types.OrdersEndpoint, input, &order); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}
	return &order, nil
}

// Cancel cancels an order
func (s *orderService) Cancel(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := s.client.sendJSON(ctx, http.MethodPost, orderPath(orderID)+"/cancel", nil, &order); err != nil {
		return nil, errors.Wrap(err, "failed to cancel order")
	}
	return &order, nil
}

// Track reads the order once and returns a tracker following it
func (s *orderService) Track(ctx context.Context, orderID string) (OrderTracker, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	t := newOrderTracker(s, order, s.tracker)
	s.trackers.Add(t)
	return t, nil
}

func orderPath(orderID string) string {
	return types.OrdersEndpoint + "/" + url.PathEscape(orderID)
}
