package middleware

import (
	"context"
	"net/http"
)

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

type routeKey struct{}

type routeHolder struct {
	pattern string
}

// withRouteHolder installs a holder that SetRoute fills in, unless one is
// already present.
func withRouteHolder(r *http.Request) (*http.Request, *routeHolder) {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		return r, h
	}
	h := &routeHolder{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, h)), h
}

// SetRoute records the matched route pattern for logging and metrics.
func SetRoute(ctx context.Context, pattern string) {
	if h, ok := ctx.Value(routeKey{}).(*routeHolder); ok {
		h.pattern = pattern
	}
}

// Route returns the recorded route pattern, or UnmatchedRoute.
func Route(ctx context.Context) string {
	if h, ok := ctx.Value(routeKey{}).(*routeHolder); ok && h.pattern != "" {
		return h.pattern
	}
	return UnmatchedRoute
}

func (h *routeHolder) route() string {
	if h.pattern == "" {
		return UnmatchedRoute
	}
	return h.pattern
}
