package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "carepass/cmd/internal/auth/api"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context, timeout time.Duration) error
}

// newRouter assembles the HTTP surface. Middleware order: request id first
// so every later layer can log it, recovery innermost of the logging layers
// so panics still produce a 500 log line.
func newRouter(log Logger, db Pinger, auth *authapi.Handler, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(middleware.RealIP)
	r.Use(func(next http.Handler) http.Handler { return WithRequestLogging(next, log) })
	if reg != nil {
		r.Use(newHTTPMetrics(reg).middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(WithSecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context(), 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.db.not_ready", "err", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Get("/api/v3/health", func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "healthy", "database": "connected"}
		if err := db.Ping(r.Context(), 2*time.Second); err != nil {
			log.Warn("health.db.unreachable", "err", err)
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "disconnected"}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	if auth != nil {
		auth.Mount(r)
	}

	return r
}
