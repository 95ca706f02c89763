// Package worker reacts to dataset notifications on behalf of the server.
package worker

import (
	"context"
	"fmt"
	"time"

	"covidmx/internal/amqp"
	"covidmx/internal/dataset"
	applog "covidmx/internal/log"
)

// Datasets is the part of dataset.Service the worker drives.
type Datasets interface {
	Catalog() *dataset.Catalog
	Snapshot(ctx context.Context, year int) (dataset.Snapshot, error)
	Invalidate(ctx context.Context, year int)
}

// CacheWorker drops cached years when their table is re-imported and can
// reload them ahead of the next request.
type CacheWorker struct {
	datasets Datasets
	logger   *applog.Logger
	reload   bool
}

func NewCacheWorker(datasets Datasets, logger *applog.Logger, reload bool) *CacheWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &CacheWorker{
		datasets: datasets,
		logger:   logger.WithComponent(applog.ComponentAMQP),
		reload:   reload,
	}
}

// resolveYear maps a notification to a served year. The table name wins
// over the year field since deployments may use different prefixes.
func (w *CacheWorker) resolveYear(msg *amqp.DatasetImportedMessage) (int, bool) {
	catalog := w.datasets.Catalog()
	if y, ok := catalog.YearOf(msg.Table); ok {
		return y, true
	}
	if _, err := catalog.Table(msg.Year); err == nil {
		return msg.Year, true
	}
	return 0, false
}

// HandleDatasetImported processes one dataset.imported message. Years this
// server does not serve are acknowledged and ignored.
func (w *CacheWorker) HandleDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error {
	year, ok := w.resolveYear(msg)
	if !ok {
		w.logger.InfoContext(ctx, "Ignoring import of a year not served",
			applog.FieldYear, msg.Year,
			applog.FieldTable, msg.Table,
			applog.FieldOperation, applog.OpConsume)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing dataset import",
		applog.FieldYear, year,
		applog.FieldTable, msg.Table,
		applog.FieldRows, msg.Rows,
		"imported_at", msg.ImportedAt)
	w.datasets.Invalidate(ctx, year)

	if !w.reload {
		return nil
	}
	return w.load(ctx, year)
}

// Warmup loads the default year so the first page view hits the cache.
func (w *CacheWorker) Warmup(ctx context.Context) error {
	return w.load(ctx, w.datasets.Catalog().Default())
}

func (w *CacheWorker) load(ctx context.Context, year int) error {
	start := time.Now()
	snap, err := w.datasets.Snapshot(ctx, year)
	if err != nil {
		return fmt.Errorf("load year %d: %w", year, err)
	}
	// A failed load is not cached and the next request retries it, so the
	// message is not requeued.
	if snap.Failed() {
		w.logger.WarnContext(ctx, "Reload failed",
			applog.FieldYear, year,
			applog.FieldError, snap.Err.Error())
		return nil
	}
	w.logger.InfoContext(ctx, "Year reloaded",
		applog.FieldYear, year,
		applog.FieldRows, snap.Table.Len(),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
