package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/internal/logging"
	httpAdapter "github.com/aretw0/bluegreen/pkg/adapters/http"
	"github.com/aretw0/bluegreen/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// NewServeHandler wires the HTTP API over an opened backend with a fresh metrics registry.
// ctx bounds the deploy hook processes.
func NewServeHandler(ctx context.Context, cfg *config.Config, b *Backend, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	d, err := NewDeployer(cfg, b, false, logger, metrics)
	if err != nil {
		return nil, err
	}

	build, err := NewBuilder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return httpAdapter.NewHandler(b.Store, d,
		httpAdapter.WithBuilder(build),
		httpAdapter.WithGatherer(reg),
		httpAdapter.WithLogger(logger),
	), nil
}

// RunServe serves the HTTP API on ln until ctx is cancelled, then shuts down gracefully.
func RunServe(ctx context.Context, cfg *config.Config, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Override != "" {
		logger.Warn("State override is ignored by the server", "key", cfg.Key)
	}

	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	handler, err := NewServeHandler(ctx, cfg, b, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", ln.Addr().String(), "backend", cfg.Store.Backend, "key", cfg.Key)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("close server: %w", err)
			}
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}
