// Package aggregate turns a case table into category counts and percentages
// ready to be rendered as KPI values, bar/pie charts or bucket matrices.
// Every function is pure and total: empty tables, missing columns and zero
// denominators produce zero values instead of errors.
package aggregate

import (
	"math"
	"sort"

	"covidmx/internal/core"
)

// Share is the count and percentage of one category.
type Share struct {
	Column  string
	Label   string
	Count   int
	Percent float64
}

// Percent returns 100*count/denominator rounded to one decimal, or 0 when
// the denominator is not positive.
func Percent(count, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return Round1(100 * float64(count) / float64(denominator))
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type flagOptions struct {
	keepOrder    bool
	dropEmpty    bool
	shareOfTotal bool
}

// FlagOption tunes CountByFlag.
type FlagOption func(*flagOptions)

// KeepOrder preserves the caller's flag order instead of sorting by
// descending percentage.
func KeepOrder() FlagOption {
	return func(o *flagOptions) { o.keepOrder = true }
}

// DropEmpty omits flags with a zero count.
func DropEmpty() FlagOption {
	return func(o *flagOptions) { o.dropEmpty = true }
}

// ShareOfTotal computes each percentage over the sum of all flag counts
// instead of the given denominator.
func ShareOfTotal() FlagOption {
	return func(o *flagOptions) { o.shareOfTotal = true }
}

// CountByFlag counts, for every flag column present in t, the rows whose
// value equals 1 and expresses it as a percentage of denominator. Flags whose
// column is absent from the table are omitted. The result is sorted by
// descending percentage; ties keep the caller's order.
func CountByFlag(t *core.Table, flags []core.Flag, denominator int, opts ...FlagOption) []Share {
	var o flagOptions
	for _, opt := range opts {
		opt(&o)
	}

	present := make([]core.Flag, 0, len(flags))
	for _, f := range flags {
		if t.Has(f.Column) {
			present = append(present, f)
		}
	}
	counts := make([]int, len(present))
	for r := range t.Rows() {
		for i, f := range present {
			if r.Is(f.Column, 1) {
				counts[i]++
			}
		}
	}

	out := make([]Share, 0, len(present))
	sum := 0
	for i, f := range present {
		if o.dropEmpty && counts[i] == 0 {
			continue
		}
		sum += counts[i]
		out = append(out, Share{Column: f.Column, Label: f.Label, Count: counts[i]})
	}

	denom := denominator
	if o.shareOfTotal {
		denom = sum
	}
	for i := range out {
		out[i].Percent = Percent(out[i].Count, denom)
	}

	if !o.keepOrder {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	}
	return out
}

// SumPercent adds up the percentages of a share list.
func SumPercent(shares []Share) float64 {
	total := 0.0
	for _, s := range shares {
		total += s.Percent
	}
	return Round1(total)
}

// Lookup returns the share with the given label.
func Lookup(shares []Share, label string) (Share, bool) {
	for _, s := range shares {
		if s.Label == label {
			return s, true
		}
	}
	return Share{}, false
}
