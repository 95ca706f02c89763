package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"covidmx/internal/cache"
	"covidmx/internal/core"
	applog "covidmx/internal/log"
)

// Snapshot is the table of one year as seen by a request. A failed load
// yields an empty table with a user-facing warning and the cause in Err.
type Snapshot struct {
	Year    int
	Table   *core.Table
	Cached  bool
	Warning string
	Err     error
}

// Failed reports whether the snapshot comes from a failed load.
func (s Snapshot) Failed() bool {
	return s.Err != nil
}

// Service resolves years to tables through the catalog, the cache and the
// loader.
type Service struct {
	loader  Loader
	catalog *Catalog
	tables  *cache.YearCache[*core.Table]
	logger  *applog.Logger
	events  *applog.StructuredLogger
}

// NewService wires a loader behind a year cache. tables may be shared with
// other consumers that invalidate it.
func NewService(loader Loader, catalog *Catalog, tables *cache.YearCache[*core.Table], logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentDataset)
	return &Service{
		loader:  loader,
		catalog: catalog,
		tables:  tables,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
	}
}

// Catalog exposes the year catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Snapshot returns the table of year, loading it on a cache miss. The only
// error is ErrUnknownYear; load failures are reported inside the snapshot
// and are not cached, so the next request retries.
func (s *Service) Snapshot(ctx context.Context, year int) (Snapshot, error) {
	table, err := s.catalog.Table(year)
	if err != nil {
		return Snapshot{}, err
	}

	t, cached, err := s.tables.Get(ctx, year, func(ctx context.Context) (*core.Table, error) {
		return s.load(ctx, year, table)
	})
	if err != nil {
		return Snapshot{
			Year:    year,
			Table:   core.EmptyTable(),
			Warning: fmt.Sprintf("No se pudieron cargar los datos de %s. La tabla está vacía o ocurrió un error al cargar los datos.", table),
			Err:     err,
		}, nil
	}
	return Snapshot{Year: year, Table: t, Cached: cached}, nil
}

func (s *Service) load(ctx context.Context, year int, table string) (*core.Table, error) {
	start := time.Now()
	t, err := s.loader.Load(ctx, table)
	if err != nil {
		errType := applog.ErrorTypeDatabase
		if errors.Is(err, context.DeadlineExceeded) {
			errType = applog.ErrorTypeTimeout
		}
		s.events.LogError(ctx, "Failed to load year table", err, errType, applog.ComponentDataset, applog.OpLoad,
			applog.NewFields().WithTable(year, table, 0, 0).WithDuration(time.Since(start)))
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, table, err)
	}
	if t == nil {
		t = core.EmptyTable()
	}
	s.events.LogTableLoaded(ctx, year, table, t.Len(), len(t.Columns()), time.Since(start))
	return t, nil
}

// Refresh drops every cached year; the next request reloads from the store.
func (s *Service) Refresh(ctx context.Context) {
	s.tables.Reset()
	s.logger.InfoContext(ctx, "Table cache cleared", applog.FieldOperation, applog.OpRefresh)
}

// Invalidate drops one year, typically after it was re-imported.
func (s *Service) Invalidate(ctx context.Context, year int) {
	s.tables.Invalidate(year)
	s.logger.InfoContext(ctx, "Year invalidated", applog.FieldYear, year, applog.FieldOperation, applog.OpRefresh)
}

// Ready checks that the store answers when the loader supports it.
func (s *Service) Ready(ctx context.Context) error {
	p, ok := s.loader.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// CachedYears reports how many years are currently held in the cache.
func (s *Service) CachedYears() int {
	return s.tables.Len()
}
