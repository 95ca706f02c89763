package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidmx/internal/core"
)

var classCategories = []Category{
	{Code: 1, Label: "Confirmados"},
	{Code: 2, Label: "Negativos"},
}

func TestMonthsAlwaysTwelveBuckets(t *testing.T) {
	rows := make([][]any, 0, 7)
	for i := 0; i < 5; i++ {
		rows = append(rows, []any{int64(1), "2020-03-1" + string(rune('0'+i))})
	}
	rows = append(rows,
		[]any{int64(1), "9999-99-99"},
		[]any{int64(1), nil},
	)
	tbl := core.NewTable([]string{"CLASIFICACION_FINAL", "FECHA_INGRESO"}, rows)

	ct := CrossTabulate(tbl, MonthsOf("FECHA_INGRESO"), "CLASIFICACION_FINAL", classCategories)
	require.Len(t, ct.Buckets, 12)
	require.Len(t, ct.Counts, 12)

	series := ct.Series(1)
	want := []int{0, 0, 5, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, want, series)
	assert.Equal(t, "Mar", ct.Buckets[2].Label)
	assert.Equal(t, make([]int, 12), ct.Series(2))
}

func TestCrossTabEmptyTable(t *testing.T) {
	specs := map[string]BucketSpec{
		"months":  MonthsOf(core.ColAdmissionDate),
		"age5":    AgeBands5(),
		"age10":   AgeBands10(),
		"delay":   AdmissionDelayBands(),
		"nilable": NumericBins{Start: 0, Width: 1, Count: 3},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			ct := CrossTabulate(core.EmptyTable(), spec, core.ColSex, classCategories)
			assert.Len(t, ct.Counts, len(spec.Domain()))
			assert.Zero(t, ct.Total())
			for _, rate := range ct.Rate(1, 1, 2) {
				assert.Zero(t, rate)
			}
			_, _, ok := ct.Peak(1)
			assert.False(t, ok)
		})
	}
}

func TestAgeBandBoundaries(t *testing.T) {
	bins := AgeBands5()
	domain := bins.Domain()
	require.Len(t, domain, 20)
	assert.Equal(t, "0-4", domain[0].Label)
	assert.Equal(t, 2.0, domain[0].Midpoint)
	assert.Equal(t, "95+", domain[19].Label)
	assert.Equal(t, 97.5, domain[19].Midpoint)

	tests := []struct {
		age  any
		want string
		ok   bool
	}{
		{age: int64(0), want: "0-4", ok: true},
		{age: int64(4), want: "0-4", ok: true},
		{age: int64(5), want: "5-9", ok: true},
		{age: int64(94), want: "90-94", ok: true},
		{age: int64(95), want: "95+", ok: true},
		{age: int64(150), want: "95+", ok: true},
		{age: "37", want: "35-39", ok: true},
		{age: int64(-1), ok: false},
		{age: "n/a", ok: false},
		{age: nil, ok: false},
	}
	for _, tt := range tests {
		tbl := core.NewTable([]string{"EDAD"}, [][]any{{tt.age}})
		idx, ok := bins.Assign(tbl.Row(0))
		assert.Equal(t, tt.ok, ok, "age %v", tt.age)
		if tt.ok {
			assert.Equal(t, tt.want, domain[idx].Label, "age %v", tt.age)
		}
	}
}

func TestAgeBands10(t *testing.T) {
	domain := AgeBands10().Domain()
	require.Len(t, domain, 11)
	assert.Equal(t, "90-99", domain[9].Label)
	assert.Equal(t, "100+", domain[10].Label)

	tbl := core.NewTable([]string{"EDAD"}, [][]any{{int64(100)}, {int64(120)}, {int64(99)}})
	ct := CrossTabulate(tbl, AgeBands10(), "", nil)
	assert.Equal(t, 1, ct.Series(TotalCode)[9])
	assert.Equal(t, 2, ct.Series(TotalCode)[10])
}

func TestAdmissionDelayBands(t *testing.T) {
	cols := []string{"FECHA_SINTOMAS", "FECHA_INGRESO"}
	tbl := core.NewTable(cols, [][]any{
		{"2021-01-01", "2021-01-01"}, // 0
		{"2021-01-01", "2021-01-02"}, // 1
		{"2021-01-01", "2021-01-03"}, // 2
		{"2021-01-01", "2021-01-21"}, // 20 -> last band
		{"2021-01-01", "2021-01-22"}, // 21 -> excluded
		{"2021-01-05", "2021-01-01"}, // negative -> excluded
		{"2021-01-01", "9999-99-99"},
		{"garbage", "2021-01-02"},
	})
	ct := CrossTabulate(tbl, AdmissionDelayBands(), "", nil)
	require.Len(t, ct.Buckets, 10)
	assert.Equal(t, "0-1", ct.Buckets[0].Label)
	assert.Equal(t, "18-19", ct.Buckets[9].Label)
	assert.Equal(t, []int{2, 1, 0, 0, 0, 0, 0, 0, 0, 1}, ct.Series(TotalCode))
}

func TestCrossTabRoundTrip(t *testing.T) {
	tbl := core.NewTable(
		[]string{"SEXO", "EDAD"},
		[][]any{
			{1, 10}, {1, 34}, {2, 34}, {2, 97}, {1, 150}, {2, 0}, {99, 40}, {1, nil},
		},
	)
	sexes := []Category{{Code: 1, Label: "Hombres"}, {Code: 2, Label: "Mujeres"}}
	ct := CrossTabulate(tbl, AgeBands5(), "SEXO", sexes)

	for _, c := range sexes {
		direct := tbl.Count(func(r core.Row) bool {
			_, hasAge := r.Int("EDAD")
			return r.Is("SEXO", c.Code) && hasAge
		})
		assert.Equal(t, direct, ct.CategoryTotal(c.Code), c.Label)
	}
	assert.Equal(t, 6, ct.Total(), "unknown sex and null age are excluded")
	assert.Equal(t, ct, CrossTabulate(tbl, AgeBands5(), "SEXO", sexes), "pure function")
}

func TestCrossTabRateAndPeak(t *testing.T) {
	tbl := core.NewTable(
		[]string{"RESULTADO_ANTIGENO", "FECHA_SINTOMAS"},
		[][]any{
			{1, "2021-01-10"}, {2, "2021-01-11"}, {2, "2021-01-12"}, {2, "2021-01-13"},
			{1, "2021-02-01"}, {1, "2021-02-02"},
			{97, "2021-03-01"},
		},
	)
	cats := []Category{{Code: 1}, {Code: 2}, {Code: 97}}
	ct := CrossTabulate(tbl, MonthsOf("FECHA_SINTOMAS"), "RESULTADO_ANTIGENO", cats)

	rate := ct.Rate(1, 1, 2)
	assert.Equal(t, 25.0, rate[0])
	assert.Equal(t, 100.0, rate[1])
	assert.Equal(t, 0.0, rate[2], "bucket without positives or negatives")

	b, n, ok := ct.Peak(1)
	require.True(t, ok)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{4, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, ct.BucketTotals)
}

func TestCrossTabMissingCategoryColumn(t *testing.T) {
	tbl := core.NewTable([]string{"EDAD"}, [][]any{{3}, {7}})
	ct := CrossTabulate(tbl, AgeBands5(), "SEXO", classCategories)
	assert.Len(t, ct.Counts, 20)
	assert.Zero(t, ct.Total())
}

func TestStats(t *testing.T) {
	assert.Zero(t, WeightedMidpointAverage(nil, nil))
	assert.Zero(t, WeightedMidpointAverage([]int{0, 0}, []float64{2, 7}))
	assert.Equal(t, 4.5, WeightedMidpointAverage([]int{1, 1}, []float64{2, 7}))
	assert.Equal(t, 97.5, WeightedMidpointAverage([]int{0, 3}, []float64{2, 97.5}))

	_, ok := MedianBucket([]int{0, 0, 0})
	assert.False(t, ok)
	m, ok := MedianBucket([]int{1, 1, 4, 1})
	require.True(t, ok)
	assert.Equal(t, 2, m)

	assert.Zero(t, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))

	_, ok = Ratio(4, 0)
	assert.False(t, ok)
	r, ok := Ratio(3, 2)
	require.True(t, ok)
	assert.Equal(t, 1.5, r)
}
