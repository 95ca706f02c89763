package aggregate

import "covidmx/internal/core"

// Category is one value of a coded column.
type Category struct {
	Code  int
	Label string
}

// TotalCode identifies the single series of a cross tabulation done without
// a category column.
const TotalCode = 0

// CrossTab holds counts per (bucket, category). Buckets are always in their
// natural order and every bucket of the domain is present.
type CrossTab struct {
	Buckets    []Bucket
	Categories []Category
	// Counts is indexed [bucket][category].
	Counts [][]int
	// BucketTotals counts, per bucket, the rows of any listed category.
	BucketTotals []int
}

// CrossTabulate buckets every row of t with spec and counts it under its
// value of categoryColumn. Rows whose category is not among categories, or
// that the spec cannot place, are excluded. An empty categoryColumn counts
// every placed row under a single "Total" category.
func CrossTabulate(t *core.Table, spec BucketSpec, categoryColumn string, categories []Category) CrossTab {
	if categoryColumn == "" {
		categories = []Category{{Code: TotalCode, Label: "Total"}}
	}
	domain := spec.Domain()
	ct := CrossTab{
		Buckets:      domain,
		Categories:   append([]Category(nil), categories...),
		Counts:       make([][]int, len(domain)),
		BucketTotals: make([]int, len(domain)),
	}
	for i := range ct.Counts {
		ct.Counts[i] = make([]int, len(categories))
	}

	pos := make(map[int]int, len(categories))
	for i, c := range categories {
		pos[c.Code] = i
	}
	if categoryColumn != "" && !t.Has(categoryColumn) {
		return ct
	}

	for r := range t.Rows() {
		ci := 0
		if categoryColumn != "" {
			code, ok := r.Int(categoryColumn)
			if !ok {
				continue
			}
			idx, known := pos[code]
			if !known {
				continue
			}
			ci = idx
		}
		bi, ok := spec.Assign(r)
		if !ok || bi < 0 || bi >= len(domain) {
			continue
		}
		ct.Counts[bi][ci]++
		ct.BucketTotals[bi]++
	}
	return ct
}

func (ct CrossTab) index(code int) (int, bool) {
	for i, c := range ct.Categories {
		if c.Code == code {
			return i, true
		}
	}
	return 0, false
}

// Series returns the per-bucket counts of one category, zeros when the
// category is not part of the tabulation.
func (ct CrossTab) Series(code int) []int {
	out := make([]int, len(ct.Buckets))
	ci, ok := ct.index(code)
	if !ok {
		return out
	}
	for b := range ct.Counts {
		out[b] = ct.Counts[b][ci]
	}
	return out
}

// CategoryTotal sums one category over all buckets.
func (ct CrossTab) CategoryTotal(code int) int {
	total := 0
	for _, n := range ct.Series(code) {
		total += n
	}
	return total
}

// Total is the number of rows placed in the tabulation.
func (ct CrossTab) Total() int {
	total := 0
	for _, n := range ct.BucketTotals {
		total += n
	}
	return total
}

// Rate returns, per bucket, the percentage of numerator over the sum of the
// denominator categories (numerator included only if listed). A bucket with
// a zero denominator yields 0.
func (ct CrossTab) Rate(numerator int, denominators ...int) []float64 {
	num := ct.Series(numerator)
	den := make([]int, len(ct.Buckets))
	for _, code := range denominators {
		for b, n := range ct.Series(code) {
			den[b] += n
		}
	}
	out := make([]float64, len(ct.Buckets))
	for b := range out {
		out[b] = Percent(num[b], den[b])
	}
	return out
}

// Peak returns the bucket with the highest count for a category; the
// earliest bucket wins ties. ok is false when the category has no rows.
func (ct CrossTab) Peak(code int) (bucket int, count int, ok bool) {
	for b, n := range ct.Series(code) {
		if n > count {
			bucket, count = b, n
		}
	}
	return bucket, count, count > 0
}

// Has reports whether any row of the category was counted.
func (ct CrossTab) Has(code int) bool {
	return ct.CategoryTotal(code) > 0
}
