package transport

import (
	"context"
	"sync"
)

// Handler performs one request and returns its response or failure
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Do calls h(ctx, req)
func (h Handler) Do(ctx context.Context, req *Request) (*Response, error) {
	return h(ctx, req)
}

// Middleware wraps a handler with one pipeline stage
type Middleware func(next Handler) Handler

// Doer is anything that can execute a request
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Chain composes middlewares around terminal. The first middleware is the outermost.
func Chain(terminal Handler, mws ...Middleware) Handler {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Pipeline runs a composed chain and then flushes actions deferred during the call
type Pipeline struct {
	handler Handler
}

// NewPipeline composes terminal with mws, outermost first
func NewPipeline(terminal Handler, mws ...Middleware) *Pipeline {
	return &Pipeline{handler: Chain(terminal, mws...)}
}

// Do executes req. Navigation deferred by any stage runs after the full
// response cycle, including stages that observe the error on the way out.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, q, owner := withDeferQueue(ctx)
	resp, err := p.handler(ctx, req)
	if owner {
		q.flush()
	}
	return resp, err
}

type deferKey struct{}

type deferQueue struct {
	mu  sync.Mutex
	fns []func()
}

// withDeferQueue attaches a queue to ctx unless one is already there.
// Nested pipeline calls share the outermost queue.
func withDeferQueue(ctx context.Context) (context.Context, *deferQueue, bool) {
	if q, ok := ctx.Value(deferKey{}).(*deferQueue); ok {
		return ctx, q, false
	}
	q := &deferQueue{}
	return context.WithValue(ctx, deferKey{}, q), q, true
}

// Defer schedules fn to run once the current pipeline call completes.
// Outside a pipeline call fn runs immediately.
func Defer(ctx context.Context, fn func()) {
	q, ok := ctx.Value(deferKey{}).(*deferQueue)
	if !ok {
		fn()
		return
	}
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *deferQueue) flush() {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
