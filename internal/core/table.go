package core

import (
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Table is an immutable set of rows with named columns, as returned by a
// "select *" over one yearly table. Cells keep the driver's native value and
// are converted on read, so a column that fails to parse only affects the
// aggregation that reads it.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// Row is a read-only view over one table row.
type Row struct {
	index map[string]int
	cells []any
}

// NewTable builds a table. Rows shorter than the column list read as NULL in
// the missing positions. The caller must not mutate rows afterwards.
func NewTable(columns []string, rows [][]any) *Table {
	cols := make([]string, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.ToUpper(strings.TrimSpace(c))
		cols[i] = c
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &Table{columns: cols, index: index, rows: rows}
}

// EmptyTable returns a table with no columns and no rows.
func EmptyTable() *Table {
	return NewTable(nil, nil)
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Has reports whether the column exists in this table's schema.
func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[column]
	return ok
}

func (t *Table) Row(i int) Row {
	return Row{index: t.index, cells: t.rows[i]}
}

// Rows iterates over every row in load order.
func (t *Table) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		if t == nil {
			return
		}
		for _, cells := range t.rows {
			if !yield(Row{index: t.index, cells: cells}) {
				return
			}
		}
	}
}

// Filter returns the rows for which keep returns true. The result shares the
// schema and the underlying cells with t.
func (t *Table) Filter(keep func(Row) bool) *Table {
	if t == nil {
		return EmptyTable()
	}
	out := make([][]any, 0, len(t.rows)/4)
	for _, cells := range t.rows {
		if keep(Row{index: t.index, cells: cells}) {
			out = append(out, cells)
		}
	}
	return &Table{columns: t.columns, index: t.index, rows: out}
}

// Count returns how many rows satisfy pred.
func (t *Table) Count(pred func(Row) bool) int {
	n := 0
	for r := range t.Rows() {
		if pred(r) {
			n++
		}
	}
	return n
}

// Distinct returns the sorted non-empty string values of a column. A missing
// column yields nil.
func (t *Table) Distinct(column string) []string {
	if !t.Has(column) {
		return nil
	}
	seen := make(map[string]struct{})
	for r := range t.Rows() {
		if v, ok := r.String(column); ok && v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Value returns the raw cell. ok is false for a missing column or NULL.
func (r Row) Value(column string) (any, bool) {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) || r.cells[i] == nil {
		return nil, false
	}
	return r.cells[i], true
}

// Int reads an integer code or count.
func (r Row) Int(column string) (int, bool) {
	v, ok := r.Value(column)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case int16:
		return int(x), true
	case int8:
		return int(x), true
	case uint8:
		return int(x), true
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case []byte:
		return atoi(string(x))
	case string:
		return atoi(x)
	}
	return 0, false
}

// String reads a textual cell. Integer cells are rendered in base 10.
func (r Row) String(column string) (string, bool) {
	v, ok := r.Value(column)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case []byte:
		return strings.TrimSpace(string(x)), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case time.Time:
		return x.Format(DateLayout), true
	case interface{ String() string }:
		return x.String(), true
	}
	return "", false
}

// Date reads a calendar date. NULL, the not-applicable sentinel and any
// unparseable text all report false.
func (r Row) Date(column string) (time.Time, bool) {
	v, ok := r.Value(column)
	if !ok {
		return time.Time{}, false
	}
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x, true
	case []byte:
		return ParseDate(string(x))
	case string:
		return ParseDate(x)
	case interface{ String() string }:
		return ParseDate(x.String())
	}
	return time.Time{}, false
}

// Is reports whether an integer column equals code.
func (r Row) Is(column string, code int) bool {
	v, ok := r.Int(column)
	return ok && v == code
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}
