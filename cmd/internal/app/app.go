// Package app wires the carepass server runtime: config, logging, storage,
// the customer API and its operational endpoints.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authapi "carepass/cmd/internal/auth/api"
)

// App is the carepass server runtime: it owns the backend and HTTP wiring.
type App struct {
	cfg Config
	log Logger

	backend *Backend
	handler http.Handler
}

// New constructs a fully wired App. Run closes b when it returns; on error
// the caller still owns b.
func New(ctx context.Context, cfg Config, log Logger, b *Backend) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if cfg.AutoMigrate {
		res, err := b.Migrate(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("db.migrated", "driver", b.Driver, "applied", len(res.Applied), "version", res.Version)
	}

	svc, err := NewSessionService(cfg, b, log)
	if err != nil {
		return nil, err
	}

	apiCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	opts := []authapi.HandlerOption{}
	if reg != nil {
		opts = append(opts, authapi.WithRegisterer(reg))
	}
	auth, err := authapi.NewHandler(log, svc, apiCfg, opts...)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		backend: b,
		handler: newRouter(log, b, auth, reg),
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully and closes the backend.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		_ = a.backend.Close()
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", ln.Addr().String(), "db_driver", a.backend.Driver)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.backend.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.backend.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
