package app

import (
	"context"
	"os/signal"
	"syscall"
)

// ServiceName identifies the process in traces.
const ServiceName = "carepass"

// Run is the serve entrypoint used by cmd/carepass.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run(envFile string) error {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := SetupTracing(ctx, cfg, ServiceName)
	if err != nil {
		log.Warn("otel.setup.fail", "err", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("otel.shutdown.fail", "err", err)
		}
	}()

	b, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	a, err := New(ctx, cfg, log, b)
	if err != nil {
		_ = b.Close()
		return err
	}

	return a.Run(ctx)
}
