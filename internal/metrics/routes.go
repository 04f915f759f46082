package metrics

import (
	"net/http"
	"time"
)

// RouteTimers times requests per route. Each timer is named after the
// pattern the request matched, e.g. "GET /location/{id}".
type RouteTimers struct {
	registry *Registry
}

// NewRouteTimers records route timers in r.
func NewRouteTimers(r *Registry) *RouteTimers {
	return &RouteTimers{registry: r}
}

// Middleware times next. It must wrap the ServeMux the routes are registered
// on; requests that match no route are not timed.
func (t *RouteTimers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		next.ServeHTTP(w, r)
		if r.Pattern != "" {
			t.registry.Timer(r.Pattern).Update(time.Since(began))
		}
	})
}
