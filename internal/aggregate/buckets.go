package aggregate

import (
	"strconv"
	"time"

	"covidmx/internal/core"
)

// Bucket is one slot on a fixed chart axis.
type Bucket struct {
	Label    string
	Midpoint float64
}

// BucketSpec maps rows onto a fixed, ordered bucket domain. Assign reports
// false for rows whose value is missing, unparseable or outside the domain.
type BucketSpec interface {
	Domain() []Bucket
	Assign(r core.Row) (int, bool)
}

// IntValue extracts an integer from a row.
type IntValue func(core.Row) (int, bool)

// DateValue extracts a calendar date from a row.
type DateValue func(core.Row) (time.Time, bool)

// IntColumn reads an integer column.
func IntColumn(column string) IntValue {
	return func(r core.Row) (int, bool) { return r.Int(column) }
}

// DateColumn reads a date column.
func DateColumn(column string) DateValue {
	return func(r core.Row) (time.Time, bool) { return r.Date(column) }
}

// DaysBetween is the whole number of days from one date column to another.
// Rows where either date fails to parse are excluded.
func DaysBetween(from, to string) IntValue {
	return func(r core.Row) (int, bool) {
		a, ok := r.Date(from)
		if !ok {
			return 0, false
		}
		b, ok := r.Date(to)
		if !ok {
			return 0, false
		}
		return int(b.Sub(a).Hours() / 24), true
	}
}

// NumericBins are Count fixed-width bands starting at Start, each including
// its lower edge and excluding its upper edge. With OpenTop every value at or
// above the last edge falls into one extra open band; without it, values
// above the last edge are excluded except for IncludeEdge, which folds a
// value equal to the last edge into the last band. Values below Start are
// always excluded.
type NumericBins struct {
	Value       IntValue
	Start       int
	Width       int
	Count       int
	OpenTop     bool
	TopLabel    string
	TopMidpoint float64
	IncludeEdge bool
}

// Edge returns the upper edge of the closed bands.
func (b NumericBins) Edge() int {
	return b.Start + b.Width*b.Count
}

func (b NumericBins) Domain() []Bucket {
	out := make([]Bucket, 0, b.Count+1)
	for i := 0; i < b.Count; i++ {
		lo := b.Start + i*b.Width
		hi := lo + b.Width - 1
		out = append(out, Bucket{
			Label:    strconv.Itoa(lo) + "-" + strconv.Itoa(hi),
			Midpoint: float64(lo+hi) / 2,
		})
	}
	if b.OpenTop {
		label := b.TopLabel
		if label == "" {
			label = strconv.Itoa(b.Edge()) + "+"
		}
		mid := b.TopMidpoint
		if mid == 0 {
			mid = float64(b.Edge()) + float64(b.Width)/2
		}
		out = append(out, Bucket{Label: label, Midpoint: mid})
	}
	return out
}

func (b NumericBins) Assign(r core.Row) (int, bool) {
	if b.Value == nil || b.Width <= 0 {
		return 0, false
	}
	v, ok := b.Value(r)
	if !ok || v < b.Start {
		return 0, false
	}
	edge := b.Edge()
	switch {
	case v < edge:
		return (v - b.Start) / b.Width, true
	case b.OpenTop:
		return b.Count, true
	case b.IncludeEdge && v == edge && b.Count > 0:
		return b.Count - 1, true
	}
	return 0, false
}

// Months buckets rows by calendar month, always emitting January..December.
type Months struct {
	Value DateValue
}

var monthLabels = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// MonthLabel returns the short Spanish name of month m (1-12).
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthLabels[m-1]
}

func (Months) Domain() []Bucket {
	out := make([]Bucket, 12)
	for i := range out {
		out[i] = Bucket{Label: monthLabels[i], Midpoint: float64(i + 1)}
	}
	return out
}

func (m Months) Assign(r core.Row) (int, bool) {
	if m.Value == nil {
		return 0, false
	}
	d, ok := m.Value(r)
	if !ok {
		return 0, false
	}
	return int(d.Month()) - 1, true
}

// AgeBands5 are 5-year bands 0-4 ... 90-94 plus an open "95+" band.
func AgeBands5() NumericBins {
	return NumericBins{
		Value:       IntColumn(core.ColAge),
		Start:       0,
		Width:       5,
		Count:       19,
		OpenTop:     true,
		TopLabel:    "95+",
		TopMidpoint: 97.5,
	}
}

// AgeBands10 are 10-year bands 0-9 ... 90-99 plus an open "100+" band.
func AgeBands10() NumericBins {
	return NumericBins{
		Value:    IntColumn(core.ColAge),
		Start:    0,
		Width:    10,
		Count:    10,
		OpenTop:  true,
		TopLabel: "100+",
	}
}

// AdmissionDelayBands are 2-day bands over the days from symptom onset to
// admission, 0 to 20 inclusive.
func AdmissionDelayBands() NumericBins {
	return NumericBins{
		Value:       DaysBetween(core.ColSymptomsDate, core.ColAdmissionDate),
		Start:       0,
		Width:       2,
		Count:       10,
		IncludeEdge: true,
	}
}

// MonthsOf buckets by the month of a date column.
func MonthsOf(column string) Months {
	return Months{Value: DateColumn(column)}
}

// Midpoints returns the representative value of every bucket in a domain.
func Midpoints(domain []Bucket) []float64 {
	out := make([]float64, len(domain))
	for i, b := range domain {
		out[i] = b.Midpoint
	}
	return out
}

// Labels returns the label of every bucket in a domain.
func Labels(domain []Bucket) []string {
	out := make([]string, len(domain))
	for i, b := range domain {
		out[i] = b.Label
	}
	return out
}
