package core

import "strconv"

// Coded enumerations used by the surveillance tables. Any value outside the
// declared set is kept as-is and reported as unknown, never rejected.
type (
	Classification int
	Sex            int
	PatientType    int
	// YesNo is the shared catalogue for intubation and antigen result columns.
	YesNo int
)

const (
	Confirmed   Classification = 1
	Negative    Classification = 2
	Suspected   Classification = 3
	Probable    Classification = 6
	NegativeAlt Classification = 7
)

const (
	Male       Sex = 1
	Female     Sex = 2
	SexUnknown Sex = 99
)

const (
	Ambulatory         PatientType = 1
	Hospitalized       PatientType = 2
	PatientTypeUnknown PatientType = 99
)

const (
	Yes           YesNo = 1
	No            YesNo = 2
	NotApplicable YesNo = 97
	Ignored       YesNo = 98
	Unspecified   YesNo = 99
)

var classificationLabels = map[Classification]string{
	Confirmed:   "Confirmados",
	Negative:    "Negativos",
	Suspected:   "Sospechosos",
	Probable:    "Probables",
	NegativeAlt: "Negativos (alt)",
}

// Known reports whether c is part of the declared catalogue.
func (c Classification) Known() bool {
	_, ok := classificationLabels[c]
	return ok
}

func (c Classification) Label() string {
	if l, ok := classificationLabels[c]; ok {
		return l
	}
	return "Clase " + strconv.Itoa(int(c))
}

func (s Sex) Label() string {
	switch s {
	case Male:
		return "Hombres"
	case Female:
		return "Mujeres"
	}
	return "No especificado"
}

func (p PatientType) Label() string {
	switch p {
	case Ambulatory:
		return "Ambulatorios"
	case Hospitalized:
		return "Hospitalizados"
	}
	return "No especificado"
}

// IntubationLabel names an intubation status.
func (y YesNo) IntubationLabel() string {
	switch y {
	case Yes:
		return "Intubado"
	case No:
		return "No Intubado"
	}
	return y.commonLabel()
}

// AntigenLabel names an antigen test result.
func (y YesNo) AntigenLabel() string {
	switch y {
	case Yes:
		return "Positivo"
	case No:
		return "Negativo"
	}
	return y.commonLabel()
}

func (y YesNo) commonLabel() string {
	switch y {
	case NotApplicable:
		return "No Aplica"
	case Ignored:
		return "Se Ignora"
	case Unspecified:
		return "No Especificado"
	}
	return "Código " + strconv.Itoa(int(y))
}

// CaseType is the user-facing case selector.
type CaseType string

const (
	CaseConfirmed CaseType = "confirmados"
	CaseNegative  CaseType = "negativos"
	CaseSuspected CaseType = "sospechosos"
)

// CaseTypes lists the selector values in display order.
func CaseTypes() []CaseType {
	return []CaseType{CaseConfirmed, CaseNegative, CaseSuspected}
}

// Classification maps the selector to its classification code. Unknown
// selectors fall back to confirmed cases.
func (c CaseType) Classification() Classification {
	switch c {
	case CaseNegative:
		return Negative
	case CaseSuspected:
		return Suspected
	}
	return Confirmed
}

func (c CaseType) Label() string {
	return c.Classification().Label()
}
