package core

// Column names of the yearly case tables.
const (
	ColClassification = "CLASIFICACION_FINAL"
	ColSex            = "SEXO"
	ColPatientType    = "TIPO_PACIENTE"
	ColIntubated      = "INTUBADO"
	ColAntigenResult  = "RESULTADO_ANTIGENO"
	ColSymptomsDate   = "FECHA_SINTOMAS"
	ColAdmissionDate  = "FECHA_INGRESO"
	ColDeathDate      = "FECHA_DEF"
	ColAge            = "EDAD"
	ColRegion         = "REGION"
	ColEntity         = "ENTIDAD"
	ColEntityCode     = "ENTIDAD_RES"
)

// Flag is a binary indicator column with its display label.
type Flag struct {
	Column string
	Label  string
}

// Comorbidities lists every comorbidity flag in the order used by the
// comorbidity panels.
var Comorbidities = []Flag{
	{Column: "DIABETES", Label: "Diabetes"},
	{Column: "HIPERTENSION", Label: "Hipertensión"},
	{Column: "OBESIDAD", Label: "Obesidad"},
	{Column: "RENAL_CRONICA", Label: "Enfermedad Renal"},
	{Column: "CARDIOVASCULAR", Label: "Enfermedad Cardiovascular"},
	{Column: "EPOC", Label: "EPOC"},
	{Column: "ASMA", Label: "Asma"},
	{Column: "INMUSUPR", Label: "Inmunosupresión"},
	{Column: "TABAQUISMO", Label: "Tabaquismo"},
	{Column: "OTRA_COM", Label: "Otras comorbilidades"},
}

// MainComorbidities is the subset shown next to the KPI cards.
var MainComorbidities = []Flag{
	{Column: "DIABETES", Label: "Diabetes"},
	{Column: "HIPERTENSION", Label: "Hipertensión"},
	{Column: "OBESIDAD", Label: "Obesidad"},
	{Column: "RENAL_CRONICA", Label: "Renal Crónica"},
	{Column: "CARDIOVASCULAR", Label: "Cardiovascular"},
	{Column: "TABAQUISMO", Label: "Tabaquismo"},
}
