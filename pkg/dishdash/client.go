// Package dishdash is a client for the DishDash food-delivery marketplace API.
//
// Every call goes through one request pipeline that attaches the session's
// bearer token, refreshes it once on a 401, retries failed reads with
// exponential backoff, logs each attempt and turns failures into
// *EnhancedError values the user is notified about.
package dishdash

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/99designs/keyring"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/auth"
	"github.com/eshaffer321/dishdash-go/internal/guard"
	"github.com/eshaffer321/dishdash-go/internal/notify"
	"github.com/eshaffer321/dishdash-go/internal/session"
	"github.com/eshaffer321/dishdash-go/internal/transport"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

const (
	// DefaultBaseURL is the default DishDash API base URL
	DefaultBaseURL = types.DefaultBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = types.DefaultTimeout

	// UserAgent is the user agent string
	UserAgent = types.UserAgent
)

// Client is the main DishDash API client
type Client struct {
	// Service interfaces
	Auth   AuthService
	Meals  MealService
	Orders OrderService

	options       *ClientOptions
	store         *session.Store
	router        *guard.Router
	nav           *navigator
	pipeline      *transport.Pipeline
	manager       *auth.Manager
	orders        *orderService
	captureErrors bool
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Keyring persists the session. Nil keeps it in memory only.
	Keyring keyring.Keyring

	// DeviceID is sent with every request. Generated (and persisted in the
	// keyring) when empty.
	DeviceID string

	// Headers are added to every request
	Headers map[string]string

	// ExemptEndpoints never carry a token or trigger a refresh
	ExemptEndpoints []string

	// Logger for debug logging
	Logger Logger

	// Notifier shows error toasts. Nil drops them.
	Notifier Notifier

	// Routes replaces the default route table
	Routes []Route

	// OnNavigate is called after every navigation with where the user ended up
	OnNavigate func(loc Location)

	// RetryConfig configures retry behavior
	RetryConfig *RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *Hooks

	// Tracker configures order status polling
	Tracker *TrackerConfig

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// RateLimiter interface for rate limiting
type RateLimiter = transport.RateLimiter

// NewClient creates a new DishDash client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}
	logger := types.LoggerOrNop(opts.Logger)

	c := &Client{options: opts}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}
		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}
		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}
		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// error tracking is optional
			logger.Error("Failed to initialize Sentry", "error", err)
		} else {
			c.captureErrors = true
		}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}
	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	if opts.DeviceID == "" {
		opts.DeviceID = session.DeviceID(opts.Keyring, logger)
	}

	exempt := opts.ExemptEndpoints
	if len(exempt) == 0 {
		exempt = types.DefaultExemptEndpoints()
	}

	c.store = session.NewStore(opts.Keyring, logger)

	routes := opts.Routes
	if routes == nil {
		routes = guard.DefaultRoutes(c.store)
	}
	c.router = guard.NewRouter(routes, logger)
	c.nav = &navigator{router: c.router, onNavigate: opts.OnNavigate}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop
	}

	network := transport.NewHTTPTransport(&transport.Options{
		BaseURL:    opts.BaseURL,
		HTTPClient: opts.HTTPClient,
		Headers:    opts.Headers,
		DeviceID:   opts.DeviceID,
	})

	c.pipeline = transport.NewPipeline(network.Handler(),
		transport.AuthAttach(c.store, exempt),
		transport.Classify(transport.ClassifyOptions{
			Notifier:      notifier,
			Session:       c.store,
			Navigator:     c.nav,
			Location:      c.router.Current,
			Credentials:   exempt,
			Logger:        logger,
			CaptureErrors: c.captureErrors,
		}),
		transport.AuthRefresh(transport.RefresherFunc(func(ctx context.Context) (string, error) {
			return c.manager.RefreshToken(ctx)
		}), exempt, logger),
		transport.Retry(transport.RetryOptions{
			Config: opts.RetryConfig,
			Logger: logger,
		}),
		transport.RateLimit(opts.RateLimiter),
		transport.Logging(logger, opts.Hooks),
	)

	c.manager = auth.NewManager(auth.Options{
		Doer:      c.pipeline,
		Store:     c.store,
		Navigator: c.nav,
		Logger:    logger,
	})

	c.initServices()

	return c, nil
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = c.manager
	c.Meals = &mealService{client: c}
	c.orders = newOrderService(c, c.options.Tracker)
	c.Orders = c.orders
}

// Do sends a request through the full pipeline. Failures are *EnhancedError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.pipeline.Do(ctx, req)
}

// get sends a GET and decodes the response into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req := transport.NewRequest(http.MethodGet, path, nil)
	if len(query) > 0 {
		req = req.WithQuery(query)
	}
	return c.send(ctx, req, out)
}

// sendJSON encodes body and decodes the response into out
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := transport.NewJSONRequest(method, path, body)
	if err != nil {
		return err
	}
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *Request, out interface{}) error {
	resp, err := c.pipeline.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Session returns a copy of the current session
func (c *Client) Session() Snapshot {
	return c.store.Snapshot()
}

// OnSessionChange calls fn after every session change. The returned func unsubscribes.
func (c *Client) OnSessionChange(fn func(Snapshot)) func() {
	return c.store.Subscribe(fn)
}

// Navigate moves to path after the route guards have had their say
func (c *Client) Navigate(path string, query url.Values) {
	c.nav.Navigate(path, query)
}

// Location returns where the user currently is
func (c *Client) Location() Location {
	return c.router.Location()
}

// Resolve reports where a navigation to path would end up, without moving
func (c *Client) Resolve(path string, query url.Values) (Location, error) {
	return c.router.Resolve(path, query)
}

// Close stops order tracking, waits for background logout calls and flushes
// any pending Sentry events.
func (c *Client) Close() {
	c.orders.trackers.CancelAll()
	c.manager.Wait()
	if c.captureErrors {
		sentry.Flush(2 * time.Second)
	}
}

// navigator routes through the guarded router and reports the result
type navigator struct {
	router     *guard.Router
	onNavigate func(loc Location)
}

func (n *navigator) Navigate(path string, query url.Values) {
	n.router.Navigate(path, query)
	if n.onNavigate != nil {
		n.onNavigate(n.router.Location())
	}
}
