package dataset

import (
	"slices"

	"covidmx/internal/core"
)

// Filter narrows a table by equality on REGION and ENTIDAD. An empty value
// applies no predicate on that column.
type Filter struct {
	Region string
	Entity string
}

// Regions lists the distinct regions of t, sorted.
func Regions(t *core.Table) []string {
	return t.Distinct(core.ColRegion)
}

// Entities lists the distinct entities of t, sorted, restricted to region
// when one is given.
func Entities(t *core.Table, region string) []string {
	if region == "" {
		return t.Distinct(core.ColEntity)
	}
	return t.Filter(matches(core.ColRegion, region)).Distinct(core.ColEntity)
}

// Normalize drops selections that do not exist in t: an unknown region, or
// an entity outside the chosen region.
func (f Filter) Normalize(t *core.Table) Filter {
	if f.Region != "" && !slices.Contains(Regions(t), f.Region) {
		f.Region = ""
	}
	if f.Entity != "" && !slices.Contains(Entities(t, f.Region), f.Entity) {
		f.Entity = ""
	}
	return f
}

// IsZero reports whether the filter keeps every row.
func (f Filter) IsZero() bool {
	return f.Region == "" && f.Entity == ""
}

// Apply returns the rows matching every non-empty predicate.
func (f Filter) Apply(t *core.Table) *core.Table {
	if t == nil {
		return core.EmptyTable()
	}
	if f.IsZero() {
		return t
	}
	return t.Filter(func(r core.Row) bool {
		if f.Region != "" && !matches(core.ColRegion, f.Region)(r) {
			return false
		}
		return f.Entity == "" || matches(core.ColEntity, f.Entity)(r)
	})
}

func matches(column, value string) func(core.Row) bool {
	return func(r core.Row) bool {
		s, ok := r.String(column)
		return ok && s == value
	}
}
