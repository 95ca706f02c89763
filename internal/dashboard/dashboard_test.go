package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidmx/internal/core"
)

var caseColumns = []string{
	"CLASIFICACION_FINAL", "SEXO", "TIPO_PACIENTE", "INTUBADO", "RESULTADO_ANTIGENO",
	"FECHA_SINTOMAS", "FECHA_INGRESO", "FECHA_DEF", "EDAD", "DIABETES", "OBESIDAD",
}

func caseTable() *core.Table {
	return core.NewTable(caseColumns, [][]any{
		// confirmed, recovered
		{1, 1, 1, 2, 1, "2020-03-01", "2020-03-03", "9999-99-99", 34, 1, 2},
		{1, 2, 2, 1, 2, "2020-04-01", "2020-04-05", "9999-99-99", 61, 2, 1},
		// confirmed, deceased
		{1, 1, 2, 1, 1, "2020-04-02", "2020-04-04", "2020-04-20", 72, 1, 1},
		{1, 2, 2, 2, 98, "2020-05-01", "2020-05-02", "2020-05-09", 95, 1, 2},
		// negatives and suspected
		{2, 2, 1, 97, 2, "2020-03-10", "2020-03-10", "9999-99-99", 20, 2, 2},
		{3, 1, 1, 97, 97, "2020-06-01", "2020-06-01", "9999-99-99", 8, 2, 2},
		{6, 1, 1, 97, 99, "2020-06-01", "2020-06-02", "9999-99-99", 44, 2, 2},
		// unknown codes and broken dates are tolerated
		{42, 99, 99, 99, 99, "n/a", nil, nil, nil, nil, nil},
	})
}

func TestKPIs(t *testing.T) {
	d := Build(caseTable(), Options{})

	want := map[string]float64{
		KPIConfirmed:    4,
		KPINegative:     1,
		KPISuspected:    1,
		KPIDeaths:       2,
		KPIRecovered:    2,
		KPIMen:          50,
		KPIWomen:        50,
		KPIHospitalized: 75,
		KPIAmbulatory:   25,
	}
	require.Len(t, d.KPIs, len(want))
	for id, v := range want {
		k, ok := d.KPI(id)
		require.True(t, ok, id)
		assert.Equal(t, v, k.Value, id)
	}
	assert.Equal(t, 8, d.Rows)
}

func TestSentinelDeathsAreNotCounted(t *testing.T) {
	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{1, core.DeathSentinel}
	}
	tbl := core.NewTable([]string{"CLASIFICACION_FINAL", "FECHA_DEF"}, rows)

	d := Build(tbl, Options{})
	deaths, _ := d.KPI(KPIDeaths)
	recovered, _ := d.KPI(KPIRecovered)
	assert.Zero(t, deaths.Value)
	assert.Equal(t, 5.0, recovered.Value)

	p, ok := d.Panel(PanelDeceasedComorbidities)
	require.True(t, ok)
	assert.True(t, p.Empty())
}

func TestBuildEmptyTable(t *testing.T) {
	d := Build(nil, Options{})
	assert.Len(t, d.Panels, 12)
	for _, k := range d.KPIs {
		assert.Zero(t, k.Value, k.ID)
	}
	for _, p := range d.Panels {
		assert.True(t, p.Empty(), p.ID)
		if p.Matrix != nil {
			for _, s := range p.Matrix.Series {
				assert.Len(t, s.Counts, len(p.Matrix.Buckets), p.ID)
			}
		}
	}
	assert.Equal(t, core.CaseConfirmed, d.Options.CaseType)
	assert.Equal(t, GroupConfirmed, d.Options.ComorbidityGroup)
}

func TestMonthlyPanelsHaveTwelveBuckets(t *testing.T) {
	d := Build(caseTable(), Options{})
	for _, id := range []string{PanelAntigenByMonth, PanelIntubationByMonth, PanelClassificationByMonth} {
		p, ok := d.Panel(id)
		require.True(t, ok, id)
		require.NotNil(t, p.Matrix, id)
		assert.Len(t, p.Matrix.Buckets, 12, id)
	}

	p, _ := d.Panel(PanelAntigenByMonth)
	require.Len(t, p.Matrix.Lines, 1)
	positivity := p.Matrix.Lines[0].Values
	assert.Equal(t, 50.0, positivity[2], "March: one positive, one negative")
	assert.Equal(t, 50.0, positivity[3], "April: one positive, one negative")
	assert.Zero(t, positivity[0])
}

func TestMainComorbiditiesLevels(t *testing.T) {
	d := Build(caseTable(), Options{})
	p, ok := d.Panel(PanelMainComorbidities)
	require.True(t, ok)
	require.Len(t, p.Shares, 2, "only columns present in the table")
	assert.Equal(t, "Diabetes", p.Shares[0].Label)
	assert.Equal(t, 75.0, p.Shares[0].Percent)
	assert.Equal(t, []Level{LevelHigh, LevelHigh}, p.Levels)

	assert.Equal(t, LevelHigh, SeverityLevel(10.1))
	assert.Equal(t, LevelMedium, SeverityLevel(10))
	assert.Equal(t, LevelMedium, SeverityLevel(7.5))
	assert.Equal(t, LevelLow, SeverityLevel(7))
}

func TestCaseTypeSelection(t *testing.T) {
	d := Build(caseTable(), Options{CaseType: core.CaseNegative})
	p, ok := d.Panel(PanelAgeBySex)
	require.True(t, ok)
	assert.Contains(t, p.Title, "Negativos")

	total := 0
	for _, s := range p.Matrix.Series {
		for _, n := range s.Counts {
			total += n
		}
	}
	assert.Equal(t, 1, total)
	// age 20, women
	assert.Equal(t, 1, p.Matrix.Series[1].Counts[4])
}

func TestAgeByPatientTypeStats(t *testing.T) {
	d := Build(caseTable(), Options{})
	p, _ := d.Panel(PanelAgeByPatientType)

	byLabel := map[string]Scalar{}
	for _, s := range p.Stats {
		byLabel[s.Label] = s
	}
	assert.Equal(t, 0.33, byLabel["Relación Ambulatorios/Hospitalizados"].Value)
	// ambulatory 32 (30-34), hospitalised (62+72+97.5)/3
	diff := byLabel["Diferencia de edad promedio"]
	assert.Equal(t, 45.2, diff.Value)
	assert.Equal(t, "Hospitalizados mayores", diff.Note)
}

func TestComorbidityGroup(t *testing.T) {
	tbl := caseTable()

	confirmed := Build(tbl, Options{ComorbidityGroup: GroupConfirmed})
	p, _ := confirmed.Panel(PanelComorbidityGroup)
	assert.Equal(t, 4.0, p.Stats[0].Value)

	deceased := Build(tbl, Options{ComorbidityGroup: GroupDeceased})
	p, _ = deceased.Panel(PanelComorbidityGroup)
	assert.Equal(t, 2.0, p.Stats[0].Value)
	require.NotEmpty(t, p.Shares)
	assert.Equal(t, "Diabetes", p.Shares[0].Label)
	assert.Equal(t, 100.0, p.Shares[0].Percent)
}

func TestAgeHistogramStats(t *testing.T) {
	d := Build(caseTable(), Options{})
	p, _ := d.Panel(PanelAgeHistogram)
	require.NotNil(t, p.Matrix)
	assert.Len(t, p.Matrix.Buckets, 20)
	assert.Equal(t, 1, p.Matrix.Series[0].Counts[19], "age 95 lands in 95+")

	byLabel := map[string]Scalar{}
	for _, s := range p.Stats {
		byLabel[s.Label] = s
	}
	assert.Equal(t, "40-44", byLabel["Rango de edad mediano"].Text)
	assert.Equal(t, 28.6, byLabel["Jóvenes (0-29)"].Value)
	assert.Equal(t, 28.6, byLabel["Adultos (30-59)"].Value)
	assert.Equal(t, 42.9, byLabel["Mayores (60+)"].Value)
}

func TestAdmissionDelay(t *testing.T) {
	d := Build(caseTable(), Options{})
	p, _ := d.Panel(PanelAdmissionDelay)
	require.NotNil(t, p.Matrix)
	assert.Len(t, p.Matrix.Buckets, 10)
	// delays: 2, 4, 2, 1, 0, 0, 1
	assert.Equal(t, []int{4, 2, 1, 0, 0, 0, 0, 0, 0, 0}, p.Matrix.Series[0].Counts)
}
