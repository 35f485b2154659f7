package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adhocore/gronx"

	"github.com/oshokin/bell-scheduler/internal/logger"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// Run keeps the scheduler in the foreground and ticks on the configured cron
// schedule until ctx is canceled. It replaces a system cron entry on hosts
// without one.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "bell-scheduler")

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	rt, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to release resources", "error", closeErr)
		}
	}()

	// Serve metrics while the driver runs.
	if cfg.Metrics.ListenAddress != "" {
		stop := serveMetrics(ctx, cfg.Metrics.ListenAddress, rt.Metrics.Handler())
		defer stop()
	}

	logger.InfoKV(ctx, "Scheduler started",
		"schedule", cfg.Schedule,
		"timezone", cfg.Timezone,
		"ledger_file", cfg.LedgerFile,
		"players", rt.Player.Available(),
	)

	err = drive(ctx, cfg.Schedule, loc, func(ctx context.Context) {
		rt.Tick(ctx)
	})

	logger.Info(ctx, "Scheduler stopped")

	return err
}

// drive calls tick at every instant matching expr, evaluated in loc, until
// ctx is canceled. Ticks missed while a previous one was running are skipped.
func drive(ctx context.Context, expr string, loc *time.Location, tick func(context.Context)) error {
	for {
		next, err := gronx.NextTickAfter(expr, time.Now().In(loc), false)
		if err != nil {
			return fmt.Errorf("compute next tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			tick(ctx)
		}
	}
}

// serveMetrics exposes handler on addr and returns a function stopping it.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		logger.InfoKV(ctx, "Serving metrics", "listen_address", addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Failed to stop metrics server", "error", err)
		}
	}
}
