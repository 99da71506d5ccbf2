package authapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// events counts auth outcomes and logs the notable ones. It never records
// tokens, passwords or emails.
type events struct {
	log     *slog.Logger
	counter *prometheus.CounterVec
}

func newEvents(log *slog.Logger, reg prometheus.Registerer) *events {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carepass",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Customer auth operations by operation and outcome.",
	}, []string{"op", "outcome"})

	if reg != nil {
		if err := reg.Register(counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				counter = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				log.Warn("auth.metrics.register.fail", "err", err)
			}
		}
	}
	return &events{log: log, counter: counter}
}

func (e *events) record(ctx context.Context, r *http.Request, op string, customerID int64, err error) {
	result := outcome(err)
	e.counter.WithLabelValues(op, result).Inc()

	attrs := []any{"op", op, "outcome", result}
	if id := middleware.GetReqID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if customerID > 0 {
		attrs = append(attrs, "customer_id", customerID)
	}

	switch result {
	case "success":
		e.log.DebugContext(ctx, "auth."+op, attrs...)
	case "error":
		attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "err", err)
		e.log.ErrorContext(ctx, "auth."+op+".fail", attrs...)
	case "token_revoked", "deactivated":
		e.log.InfoContext(ctx, "auth."+op+".rejected", attrs...)
	default:
		e.log.DebugContext(ctx, "auth."+op+".rejected", attrs...)
	}
}
