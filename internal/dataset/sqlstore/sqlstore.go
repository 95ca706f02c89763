// Package sqlstore loads year tables from a relational database through
// database/sql. One connection pool is opened per load and closed before
// Load returns.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"covidmx/internal/core"
	"covidmx/internal/dataset"
)

// Registered driver names.
const (
	SQLite   = "sqlite"
	MySQL    = "mysql"
	Postgres = "postgres"
)

// Store is a dataset.Loader over database/sql.
type Store struct {
	driver  string
	dsn     string
	timeout time.Duration
}

// New validates the driver name. A zero timeout means no deadline beyond
// the caller's context.
func New(driver, dsn string, timeout time.Duration) (*Store, error) {
	switch driver {
	case SQLite, MySQL, Postgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn for driver %s", driver)
	}
	return &Store{driver: driver, dsn: dsn, timeout: timeout}, nil
}

func (s *Store) quote(name string) string {
	if s.driver == MySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", s.driver, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Load runs SELECT * over table and returns every row.
func (s *Store) Load(ctx context.Context, table string) (*core.Table, error) {
	if !dataset.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", dataset.ErrInvalidTable, table)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+s.quote(table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	t, err := ScanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return t, nil
}

// Ping opens a connection and checks the server answers.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// ScanTable drains rows into a table. Text returned as bytes is kept as
// strings.
func ScanTable(rows *sql.Rows) (*core.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	var data [][]any
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return core.NewTable(columns, data), nil
}
