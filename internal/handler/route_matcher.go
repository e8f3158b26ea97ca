package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteMatcher names the route of a request, for metric labels and span names
type RouteMatcher interface {
	Match(r *http.Request) string
}

// MuxRouteMatcher names requests after the mux route they match
type MuxRouteMatcher struct {
	Router *mux.Router
}

// Match returns the route name, or the path template of an unnamed route.
// Requests that match no route are named "not_found" or "method_not_allowed", never after their path.
func (m *MuxRouteMatcher) Match(r *http.Request) string {
	var match mux.RouteMatch
	if !m.Router.Match(r, &match) {
		if match.MatchErr == mux.ErrMethodMismatch {
			return "method_not_allowed"
		}
		return "not_found"
	}

	// Route is nil when the router's NotFoundHandler took the request
	if match.Route == nil {
		return "not_found"
	}

	if name := match.Route.GetName(); name != "" {
		return name
	}

	if tmpl, err := match.Route.GetPathTemplate(); err == nil {
		return tmpl
	}

	return "not_found"
}
