package core

import (
	"strings"
	"time"
)

// DeathSentinel marks "no death recorded" in FECHA_DEF. It is not a date.
const DeathSentinel = "9999-99-99"

// DateLayout is the layout used by the open-data files.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// ParseDate parses a date cell. Empty strings and the sentinel are rejected
// without attempting a parse.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == DeathSentinel {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasDeathSentinel reports whether the row's death date is the sentinel.
// Rows with a NULL death date are not sentinel rows.
func (r Row) HasDeathSentinel() bool {
	s, ok := r.String(ColDeathDate)
	return ok && s == DeathSentinel
}

// Died reports whether the row carries a real death date: not NULL and not
// the sentinel. The value does not have to parse as a calendar date.
func (r Row) Died() bool {
	s, ok := r.String(ColDeathDate)
	return ok && s != "" && s != DeathSentinel
}
