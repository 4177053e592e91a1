package dishdash

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrackerConfig configures order status polling. The interval grows by
// BackoffFactor every third check, up to MaxInterval.
type TrackerConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BackoffFactor   float64
}

// DefaultTrackerConfig returns the default polling schedule
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		InitialInterval: 1 * time.Second,
		MaxInterval:     5 * time.Second,
		BackoffFactor:   1.5,
	}
}

func (c *TrackerConfig) withDefaults() TrackerConfig {
	cfg := DefaultTrackerConfig()
	if c == nil {
		return cfg
	}
	if c.InitialInterval > 0 {
		cfg.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		cfg.MaxInterval = c.MaxInterval
	}
	if c.BackoffFactor >= 1 {
		cfg.BackoffFactor = c.BackoffFactor
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	return cfg
}

// TrackerMetrics contains metrics about an order tracker
type TrackerMetrics struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"orderId"`
	Status     OrderStatus   `json:"status"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    *time.Time    `json:"endTime,omitempty"`
	Duration   time.Duration `json:"duration"`
	CheckCount int           `json:"checkCount"`
	LastCheck  time.Time     `json:"lastCheck"`
	LastError  error         `json:"-"`
}

// orderTracker implements OrderTracker
type orderTracker struct {
	service *orderService
	cfg     TrackerConfig
	id      string
	orderID string

	checkCount atomic.Int32
	cancelled  atomic.Bool
	stop       chan struct{}
	stopOnce   sync.Once

	mu          sync.RWMutex
	order       *Order
	transitions []OrderStatus
	startTime   time.Time
	endTime     *time.Time
	lastCheck   time.Time
	lastError   error
}

func newOrderTracker(service *orderService, order *Order, cfg TrackerConfig) *orderTracker {
	t := &orderTracker{
		service:     service,
		cfg:         cfg,
		id:          uuid.NewString(),
		orderID:     order.ID,
		stop:        make(chan struct{}),
		order:       order,
		transitions: []OrderStatus{order.Status},
		startTime:   time.Now(),
	}
	if order.Status.IsTerminal() {
		t.finish()
	}
	return t
}

// ID returns the tracker ID
func (t *orderTracker) ID() string {
	return t.id
}

// OrderID returns the tracked order
func (t *orderTracker) OrderID() string {
	return t.orderID
}

// Status returns the last status seen
func (t *orderTracker) Status() OrderStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order.Status
}

// Transitions returns every status seen, oldest first
func (t *orderTracker) Transitions() []OrderStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]OrderStatus(nil), t.transitions...)
}

// Wait polls the order until it is delivered or cancelled, timeout elapses,
// ctx is done or the tracker is cancelled. A timeout of zero waits on ctx alone.
func (t *orderTracker) Wait(ctx context.Context, timeout time.Duration) (*Order, error) {
	if t.cancelled.Load() {
		return nil, ErrTrackingCancelled
	}
	if order := t.current(); order.Status.IsTerminal() {
		return order, nil
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	interval := t.cfg.InitialInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return nil, ErrTrackingCancelled

		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrTrackingTimeout

		case <-ticker.C:
			order, err := t.check(waitCtx)
			if err != nil {
				if waitCtx.Err() != nil {
					continue
				}
				if !IsRetryable(err) {
					t.finish()
					return nil, err
				}
				continue
			}

			if order.Status.IsTerminal() {
				t.finish()
				return order, nil
			}

			if n := t.checkCount.Load(); n%3 == 0 && interval < t.cfg.MaxInterval {
				interval = time.Duration(float64(interval) * t.cfg.BackoffFactor)
				if interval > t.cfg.MaxInterval {
					interval = t.cfg.MaxInterval
				}
				ticker.Reset(interval)
			}
		}
	}
}

// Cancel stops tracking
func (t *orderTracker) Cancel() {
	t.cancelled.Store(true)
	t.stopOnce.Do(func() { close(t.stop) })
	t.finish()
}

// Metrics returns tracker metrics
func (t *orderTracker) Metrics() TrackerMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	duration := time.Since(t.startTime)
	if t.endTime != nil {
		duration = t.endTime.Sub(t.startTime)
	}

	return TrackerMetrics{
		ID:         t.id,
		OrderID:    t.orderID,
		Status:     t.order.Status,
		StartTime:  t.startTime,
		EndTime:    t.endTime,
		Duration:   duration,
		CheckCount: int(t.checkCount.Load()),
		LastCheck:  t.lastCheck,
		LastError:  t.lastError,
	}
}

// check fetches the order once and records what changed
func (t *orderTracker) check(ctx context.Context) (*Order, error) {
	t.checkCount.Add(1)
	order, err := t.service.fetch(ctx, t.orderID, true)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastCheck = time.Now()

	if err != nil {
		t.lastError = errors.Wrap(err, "failed to check order status")
		return nil, t.lastError
	}

	if order.Status != t.order.Status {
		t.transitions = append(t.transitions, order.Status)
	}
	t.order = order
	return order, nil
}

func (t *orderTracker) current() *Order {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order
}

func (t *orderTracker) finish() {
	t.mu.Lock()
	if t.endTime == nil {
		now := time.Now()
		t.endTime = &now
	}
	t.mu.Unlock()

	if t.service != nil {
		t.service.trackers.Remove(t.id)
	}
}

func (t *orderTracker) done() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endTime != nil
}

// trackerRegistry holds the trackers that are still following an order
type trackerRegistry struct {
	mu       sync.RWMutex
	trackers map[string]*orderTracker
}

func newTrackerRegistry() *trackerRegistry {
	return &trackerRegistry{
		trackers: make(map[string]*orderTracker),
	}
}

// Add registers a tracker unless it already finished
func (r *trackerRegistry) Add(t *orderTracker) {
	if t.done() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[t.ID()] = t
}

// Remove forgets a tracker
func (r *trackerRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, id)
}

// Active lists the trackers still running
func (r *trackerRegistry) Active() []*orderTracker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*orderTracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		out = append(out, t)
	}
	return out
}

// CancelAll stops every running tracker
func (r *trackerRegistry) CancelAll() int {
	active := r.Active()
	for _, t := range active {
		t.Cancel()
	}
	return len(active)
}
