// Package cli holds the start-up steps shared by cmd/covidmx and
// cmd/covidmxctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"covidmx/internal/backend"
	"covidmx/internal/cache"
	"covidmx/internal/config"
	"covidmx/internal/core"
	"covidmx/internal/dataset"
	applog "covidmx/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// Datasets is the wired read path: backend, year cache and service.
type Datasets struct {
	Service *dataset.Service
	// Tables is the LRU behind the year cache, registered for TTL cleanup.
	Tables  *cache.LRUCache[*core.Table]
	Cleanup backend.CleanupFunc
}

// Close releases the backend.
func (d *Datasets) Close() error {
	if d.Cleanup == nil {
		return nil
	}
	return d.Cleanup()
}

// NewDatasets creates the configured backend and the service over it.
func NewDatasets(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Datasets, error) {
	years, err := cfg.Years()
	if err != nil {
		return nil, err
	}
	catalog, err := dataset.NewCatalog(cfg.TablePrefix, years)
	if err != nil {
		return nil, err
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bc.Type, err)
	}

	tables := cache.NewLRUCache[*core.Table](cfg.CacheMaxYears, cfg.CacheTTL)
	svc := dataset.NewService(result.Loader, catalog, cache.NewYearCache[*core.Table](tables), logger)
	return &Datasets{Service: svc, Tables: tables, Cleanup: result.Cleanup}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or a call
// to the returned cancel. Then cleanup runs with timeout as its deadline
// and done is closed once it returns.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, cancel, done
}
