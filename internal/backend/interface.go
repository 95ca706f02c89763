package backend

import (
	"context"
	"time"

	"covidmx/internal/dataset"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the loader and an optional cleanup function
type BackendResult struct {
	Loader  dataset.Loader
	Cleanup CleanupFunc
}

// Factory creates loaders based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQL specific
	Driver       string
	DSN          string
	QueryTimeout time.Duration

	// BigQuery specific
	BQProject string
	BQDataset string

	// Service account credentials; both empty means application default
	// credentials.
	ServiceAccountJSON string
	ServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLBackend      BackendType = "sql"
	BigQueryBackend BackendType = "bigquery"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLBackend, BigQueryBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
