// Package bqstore loads year tables from a BigQuery dataset.
package bqstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"covidmx/internal/core"
	"covidmx/internal/dataset"
)

// Store is a dataset.Loader over one BigQuery dataset. A client is created
// per load and closed before Load returns.
type Store struct {
	project string
	dataset string
	timeout time.Duration
	opts    []option.ClientOption
}

// New validates the dataset name. Without client options the ambient
// application default credentials are used.
func New(project, datasetID string, timeout time.Duration, opts ...option.ClientOption) (*Store, error) {
	if project == "" {
		return nil, errors.New("bigquery project is required")
	}
	if !dataset.ValidIdentifier(datasetID) {
		return nil, fmt.Errorf("%w: dataset %q", dataset.ErrInvalidTable, datasetID)
	}
	return &Store{project: project, dataset: datasetID, timeout: timeout, opts: opts}, nil
}

// Query returns the statement that reads a whole table.
func (s *Store) Query(table string) string {
	return fmt.Sprintf("SELECT * FROM `%s.%s.%s`", s.project, s.dataset, table)
}

func (s *Store) Load(ctx context.Context, table string) (*core.Table, error) {
	if !dataset.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", dataset.ErrInvalidTable, table)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	bq, err := bigquery.NewClient(ctx, s.project, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	defer bq.Close()

	it, err := bq.Query(s.Query(table)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	t, err := drain(it, func() bigquery.Schema { return it.Schema })
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return t, nil
}

// Ping checks the dataset is reachable with the configured credentials.
func (s *Store) Ping(ctx context.Context) error {
	bq, err := bigquery.NewClient(ctx, s.project, s.opts...)
	if err != nil {
		return fmt.Errorf("create bigquery client: %w", err)
	}
	defer bq.Close()

	if _, err := bq.Dataset(s.dataset).Metadata(ctx); err != nil {
		return fmt.Errorf("dataset %s metadata: %w", s.dataset, err)
	}
	return nil
}

type rowSource interface {
	Next(dst interface{}) error
}

// drain reads every row of src. The schema is only known once the first
// page has been fetched, so columns are resolved after the loop.
func drain(src rowSource, schema func() bigquery.Schema) (*core.Table, error) {
	var data [][]any
	for {
		var values []bigquery.Value
		err := src.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(data)+1, err)
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = convert(v)
		}
		data = append(data, cells)
	}

	fields := schema()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return core.NewTable(columns, data), nil
}

// convert maps BigQuery values onto the cell types core.Row reads.
func convert(v bigquery.Value) any {
	switch x := v.(type) {
	case civil.Date:
		if !x.IsValid() {
			return nil
		}
		return x.In(time.UTC)
	case civil.DateTime:
		return x.Date.In(time.UTC)
	case []byte:
		return string(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(2)
	default:
		return v
	}
}
