// Package guard decides whether a navigation may proceed based on the
// current session, and where to send the user when it may not.
package guard

import (
	"net/url"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// SessionReader is the read side of the session store the guards need
type SessionReader interface {
	IsAuthenticated() bool
	Role() (types.Role, bool)
}

// Location is a route plus its query
type Location struct {
	Path  string
	Query url.Values
}

// String renders the location as path?query
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Decision is a guard's verdict
type Decision struct {
	Allow    bool
	Redirect string
	Query    url.Values
}

// Allow lets the navigation through
func Allow() Decision {
	return Decision{Allow: true}
}

// RedirectTo sends the navigation elsewhere
func RedirectTo(path string, query url.Values) Decision {
	return Decision{Redirect: path, Query: query}
}

// Guard inspects a navigation target
type Guard func(loc Location) Decision

// RequireAuth allows signed-in users and sends everyone else to login,
// remembering where they were going.
func RequireAuth(s SessionReader) Guard {
	return func(loc Location) Decision {
		if s.IsAuthenticated() {
			return Allow()
		}
		return toLogin(loc)
	}
}

// RequireGuest keeps signed-in users away from pages meant for signed-out
// ones, such as login, by sending them to their dashboard.
func RequireGuest(s SessionReader) Guard {
	return func(loc Location) Decision {
		if !s.IsAuthenticated() {
			return Allow()
		}
		role, _ := s.Role()
		return RedirectTo(types.DashboardRoute(role), nil)
	}
}

// RequireRole allows signed-in users holding one of roles. An empty role set
// admits any signed-in user. Signed-out users go to login, the rest to the
// unauthorized page.
func RequireRole(s SessionReader, roles ...types.Role) Guard {
	return func(loc Location) Decision {
		if !s.IsAuthenticated() {
			return toLogin(loc)
		}
		if len(roles) == 0 {
			return Allow()
		}
		role, ok := s.Role()
		if ok {
			for _, r := range roles {
				if r == role {
					return Allow()
				}
			}
		}
		return RedirectTo(types.RouteUnauthorized, nil)
	}
}

// AutoLogin skips the public landing page for signed-in users
func AutoLogin(s SessionReader) Guard {
	return func(loc Location) Decision {
		if !s.IsAuthenticated() {
			return Allow()
		}
		role, _ := s.Role()
		return RedirectTo(types.DashboardRouteOr(role, types.RouteCustomerDashboard), nil)
	}
}

func toLogin(loc Location) Decision {
	return RedirectTo(types.RouteLogin, url.Values{types.ReturnURLParam: {loc.String()}})
}
