package dataset

import (
	"fmt"
	"slices"
	"strconv"
)

// Catalog maps the selectable years to their table names.
type Catalog struct {
	years  []int
	tables map[int]string
}

// NewCatalog builds the catalog prefix+year for every year, in the given
// order. The first year is the default selection.
func NewCatalog(prefix string, years []int) (*Catalog, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("build catalog: no years")
	}
	c := &Catalog{tables: make(map[int]string, len(years))}
	for _, y := range years {
		if _, dup := c.tables[y]; dup {
			return nil, fmt.Errorf("build catalog: duplicate year %d", y)
		}
		name := prefix + strconv.Itoa(y)
		if !ValidIdentifier(name) {
			return nil, fmt.Errorf("build catalog: %w: %q", ErrInvalidTable, name)
		}
		c.tables[y] = name
		c.years = append(c.years, y)
	}
	return c, nil
}

// Years returns the catalog years in display order.
func (c *Catalog) Years() []int {
	return slices.Clone(c.years)
}

// Default is the year selected when the request does not name one.
func (c *Catalog) Default() int {
	return c.years[0]
}

// Has reports whether year is part of the catalog.
func (c *Catalog) Has(year int) bool {
	_, ok := c.tables[year]
	return ok
}

// Table returns the table name of year.
func (c *Catalog) Table(year int) (string, error) {
	name, ok := c.tables[year]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	return name, nil
}

// YearOf resolves a table name back to its year.
func (c *Catalog) YearOf(table string) (int, bool) {
	for y, name := range c.tables {
		if name == table {
			return y, true
		}
	}
	return 0, false
}
