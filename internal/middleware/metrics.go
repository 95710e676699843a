package middleware

import (
	"net/http"
	"time"

	"github.com/dukerupert/freeday/internal/metrics"
)

// Instrument records request count and latency per matched route pattern.
// It must wrap the ServeMux so r.Pattern is filled in after routing.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(r.Method, route, rec.status, time.Since(start))
		})
	}
}
