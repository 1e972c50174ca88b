package middleware

import (
	"net/http"
	"time"
)

// RequestObserver receives one observation per request.
type RequestObserver interface {
	RecordHTTPRequest(method, route string, code int, duration time.Duration)
}

// Metrics reports each request's method, route pattern, status and latency.
// A nil observer disables it.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r, route := withRouteHolder(r)
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			observer.RecordHTTPRequest(r.Method, route.route(), rec.status, time.Since(start))
		})
	}
}
