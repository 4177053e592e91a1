package guard

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/pkg/errors"
)

// DefaultMaxRedirects bounds how many guard redirects one navigation may follow
const DefaultMaxRedirects = 5

// ErrTooManyRedirects is returned when guards keep redirecting
var ErrTooManyRedirects = errors.New("too many guard redirects")

// Route binds guards to a path. The root path "/" matches only itself; any
// other path also covers everything beneath it.
type Route struct {
	Path   string
	Guards []Guard
}

// Router resolves navigations through the guards of the best matching route
// and remembers where the user ended up.
type Router struct {
	routes       []Route
	maxRedirects int
	logger       types.Logger

	mu      sync.RWMutex
	current Location
	history []Location
}

// NewRouter creates a router over routes
func NewRouter(routes []Route, logger types.Logger) *Router {
	return &Router{
		routes:       routes,
		maxRedirects: DefaultMaxRedirects,
		logger:       types.LoggerOrNop(logger),
	}
}

// DefaultRoutes is the marketplace route table
func DefaultRoutes(s SessionReader) []Route {
	return []Route{
		{Path: types.RouteRoot, Guards: []Guard{AutoLogin(s)}},
		{Path: types.RouteLogin, Guards: []Guard{RequireGuest(s)}},
		{Path: types.RouteRegister, Guards: []Guard{RequireGuest(s)}},
		{Path: "/auth/forgot-password", Guards: []Guard{RequireGuest(s)}},
		{Path: "/auth/reset-password", Guards: []Guard{RequireGuest(s)}},
		{Path: types.RouteUnauthorized},
		{Path: "/profile", Guards: []Guard{RequireAuth(s)}},
		{Path: "/customer", Guards: []Guard{RequireRole(s, types.RoleCustomer)}},
		{Path: "/cook", Guards: []Guard{RequireRole(s, types.RoleCook)}},
		{Path: "/delivery", Guards: []Guard{RequireRole(s, types.RoleDelivery)}},
		{Path: "/admin", Guards: []Guard{RequireRole(s, types.RoleAdmin)}},
	}
}

// Resolve evaluates guards for path, following redirects, without moving
func (r *Router) Resolve(path string, query url.Values) (Location, error) {
	loc := Location{Path: path, Query: query}
	if i := strings.Index(loc.Path, "?"); i >= 0 {
		if q, err := url.ParseQuery(loc.Path[i+1:]); err == nil && len(loc.Query) == 0 {
			loc.Query = q
		}
		loc.Path = loc.Path[:i]
	}

	for hops := 0; hops <= r.maxRedirects; hops++ {
		decision := r.evaluate(loc)
		if decision.Allow {
			return loc, nil
		}
		r.logger.Debug("Navigation redirected", "from", loc.String(), "to", decision.Redirect)
		loc = Location{Path: decision.Redirect, Query: decision.Query}
	}

	return loc, fmt.Errorf("%w: last target %s", ErrTooManyRedirects, loc.String())
}

// Navigate moves to path after the guards have had their say. A navigation
// that cannot be resolved leaves the router where it was.
func (r *Router) Navigate(path string, query url.Values) {
	loc, err := r.Resolve(path, query)
	if err != nil {
		r.logger.Warn("Navigation abandoned", "path", path, "error", err)
		return
	}

	r.mu.Lock()
	r.current = loc
	r.history = append(r.history, loc)
	r.mu.Unlock()

	r.logger.Debug("Navigated", "location", loc.String())
}

// Current returns the current location as path?query, or "" before the first navigation
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.String()
}

// Location returns the current location
func (r *Router) Location() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// History returns every location navigated to, oldest first
func (r *Router) History() []Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Location(nil), r.history...)
}

func (r *Router) evaluate(loc Location) Decision {
	route := r.match(loc.Path)
	if route == nil {
		return Allow()
	}
	for _, g := range route.Guards {
		if d := g(loc); !d.Allow {
			return d
		}
	}
	return Allow()
}

// match picks the route with the longest matching path
func (r *Router) match(path string) *Route {
	var best *Route
	for i := range r.routes {
		route := &r.routes[i]
		if !covers(route.Path, path) {
			continue
		}
		if best == nil || len(route.Path) > len(best.Path) {
			best = route
		}
	}
	return best
}

func covers(prefix, path string) bool {
	if prefix == types.RouteRoot {
		return path == types.RouteRoot || path == ""
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
