// Package memstore serves year tables from memory, optionally backed by CSV
// files named <table>.csv in a data directory.
package memstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"covidmx/internal/core"
	"covidmx/internal/dataset"
)

// ErrNotFound is returned for a table that is neither stored nor on disk.
var ErrNotFound = errors.New("table not found")

type Store struct {
	mu     sync.RWMutex
	tables map[string]*core.Table
	dir    string
}

func New() *Store {
	return &Store{tables: map[string]*core.Table{}}
}

// NewFromDir returns a store that falls back to dir/<table>.csv for tables
// not put explicitly. Files are read on every load.
func NewFromDir(dir string) *Store {
	s := New()
	s.dir = dir
	return s
}

// Put stores t under table, replacing any previous value.
func (s *Store) Put(table string, t *core.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = t
}

func (s *Store) Load(ctx context.Context, table string) (*core.Table, error) {
	if !dataset.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", dataset.ErrInvalidTable, table)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	t, ok := s.tables[table]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}
	if s.dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}

	f, err := os.Open(filepath.Join(s.dir, table+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", table, err)
	}
	defer f.Close()

	t, err = ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return t, nil
}

// Ping checks the data directory exists when one is configured.
func (s *Store) Ping(context.Context) error {
	if s.dir == "" {
		return nil
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	return nil
}

// ReadCSV reads a header line followed by data rows. Empty fields become
// NULL cells; everything else stays text and is typed on read.
func ReadCSV(r io.Reader) (*core.Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return core.EmptyTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(rows)+2, err)
		}
		cells := make([]any, len(rec))
		for i, v := range rec {
			if v != "" {
				cells[i] = v
			}
		}
		rows = append(rows, cells)
	}
	return core.NewTable(header, rows), nil
}
