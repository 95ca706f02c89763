// Package dataset loads yearly case tables through a pluggable Loader,
// caches them per year and narrows them with the region/entity filter.
package dataset

import (
	"context"
	"errors"
	"regexp"

	"covidmx/internal/core"
)

var (
	// ErrUnknownYear is returned for a year outside the configured catalog.
	ErrUnknownYear = errors.New("unknown year")
	// ErrLoad wraps every failure to fetch a year table.
	ErrLoad = errors.New("load failed")
	// ErrInvalidTable rejects table names that are not plain identifiers.
	ErrInvalidTable = errors.New("invalid table name")
)

// Loader fetches a complete year table. Implementations acquire their
// connection right before the query and release it before returning, and
// return either the full table or an error, never a partial table.
type Loader interface {
	Load(ctx context.Context, table string) (*core.Table, error)
}

// Pinger is implemented by loaders that can report store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, table string) (*core.Table, error)

func (f LoaderFunc) Load(ctx context.Context, table string) (*core.Table, error) {
	return f(ctx, table)
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

// ValidIdentifier reports whether name can be interpolated into a query as a
// bare table or dataset name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}
