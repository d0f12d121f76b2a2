package http

import (
	"context"
	stdhttp "net/http"
	"time"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// HealthHandler reports liveness. With checks it also reports readiness and
// answers 503 when any check fails.
func HealthHandler(checks ...HealthCheck) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, check := range checks {
			if err := check(ctx); err != nil {
				w.WriteHeader(stdhttp.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
