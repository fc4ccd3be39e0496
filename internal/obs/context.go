package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routePatternKey struct{}

// unmatchedRoute labels requests chi could not route, keeping metric
// cardinality bounded for scans against random paths.
const unmatchedRoute = "unmatched"

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// routeOf resolves the pattern for r once the handler chain has run. The
// live chi route context holds the full pattern by then; the stored value
// covers handlers invoked outside a chi router. fallback is returned when
// neither knows the route.
func routeOf(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route := rc.RoutePattern(); route != "" {
			return route
		}
	}
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	return fallback
}
