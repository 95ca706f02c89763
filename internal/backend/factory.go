package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"covidmx/internal/dataset/bqstore"
	"covidmx/internal/dataset/memstore"
	"covidmx/internal/dataset/sqlstore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLBackend:
		return f.createSQLBackend(config)
	case BigQueryBackend:
		return f.createBigQueryBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(config Config) (*BackendResult, error) {
	store, err := sqlstore.New(config.Driver, config.DSN, config.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sql store: %w", err)
	}

	f.logger.Info("Initialized SQL backend",
		"driver", config.Driver,
		"query_timeout", config.QueryTimeout)

	return &BackendResult{Loader: store}, nil
}

func (f *DefaultFactory) createBigQueryBackend(config Config) (*BackendResult, error) {
	var opts []option.ClientOption
	credentials, source, err := serviceAccountCredentials(config)
	if err != nil {
		return nil, err
	}
	if credentials != nil {
		opts = append(opts, option.WithCredentialsJSON(credentials), option.WithScopes(bigquery.Scope))
	}

	store, err := bqstore.New(config.BQProject, config.BQDataset, config.QueryTimeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bigquery store: %w", err)
	}

	f.logger.Info("Initialized BigQuery backend",
		"project", config.BQProject,
		"dataset", config.BQDataset,
		"credentials", source)

	return &BackendResult{Loader: store}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var store *memstore.Store
	if config.DataDirectory == "" {
		store = memstore.New()
	} else {
		store = memstore.NewFromDir(config.DataDirectory)
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Loader: store}, nil
}

// serviceAccountCredentials returns inline JSON first, then the file
// contents. Nil credentials leave the choice to application default
// credentials.
func serviceAccountCredentials(config Config) ([]byte, string, error) {
	switch {
	case config.ServiceAccountJSON != "":
		return []byte(config.ServiceAccountJSON), "inline_json", nil
	case config.ServiceAccountFile != "":
		data, err := os.ReadFile(config.ServiceAccountFile)
		if err != nil {
			return nil, "", fmt.Errorf("read service account file: %w", err)
		}
		return data, "file", nil
	default:
		return nil, "application_default", nil
	}
}
