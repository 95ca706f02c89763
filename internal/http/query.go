package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"covidmx/internal/core"
	"covidmx/internal/dashboard"
	"covidmx/internal/dataset"
)

// Query parameter names shared by the page, the partial and the API.
const (
	ParamYear     = "year"
	ParamRegion   = "region"
	ParamEntity   = "entity"
	ParamCaseType = "case_type"
	ParamGroup    = "group"
)

// DashboardQuery is the user selection carried in the query string.
type DashboardQuery struct {
	Year     int    `validate:"gte=1900,lte=9999"`
	Region   string `validate:"omitempty,max=64,excludesall=<>\"'&;"`
	Entity   string `validate:"omitempty,max=64,excludesall=<>\"'&;"`
	CaseType string `validate:"omitempty,oneof=confirmados negativos sospechosos"`
	Group    string `validate:"omitempty,oneof=confirmados fallecidos"`
}

// Filter returns the row filter of the selection.
func (q DashboardQuery) Filter() dataset.Filter {
	return dataset.Filter{Region: q.Region, Entity: q.Entity}
}

// Options returns the panel options of the selection.
func (q DashboardQuery) Options() dashboard.Options {
	return dashboard.Options{
		CaseType:         core.CaseType(q.CaseType),
		ComorbidityGroup: dashboard.Group(q.Group),
	}
}

// Values encodes the selection back into query parameters, omitting empty
// fields.
func (q DashboardQuery) Values() url.Values {
	v := url.Values{}
	v.Set(ParamYear, strconv.Itoa(q.Year))
	if q.Region != "" {
		v.Set(ParamRegion, q.Region)
	}
	if q.Entity != "" {
		v.Set(ParamEntity, q.Entity)
	}
	if q.CaseType != "" {
		v.Set(ParamCaseType, q.CaseType)
	}
	if q.Group != "" {
		v.Set(ParamGroup, q.Group)
	}
	return v
}

// QueryParser turns raw parameters into a DashboardQuery. Invalid values
// never fail the request: they fall back to the default and a warning is
// returned for logging.
type QueryParser struct {
	validate *validator.Validate
	catalog  *dataset.Catalog
}

// NewQueryParser creates a parser bound to the year catalog.
func NewQueryParser(catalog *dataset.Catalog) *QueryParser {
	return &QueryParser{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		catalog:  catalog,
	}
}

// Parse reads the selection from values.
func (p *QueryParser) Parse(values url.Values) (DashboardQuery, []string) {
	var warnings []string
	q := DashboardQuery{
		Year:     p.catalog.Default(),
		Region:   strings.TrimSpace(values.Get(ParamRegion)),
		Entity:   strings.TrimSpace(values.Get(ParamEntity)),
		CaseType: strings.TrimSpace(values.Get(ParamCaseType)),
		Group:    strings.TrimSpace(values.Get(ParamGroup)),
	}

	if raw := strings.TrimSpace(values.Get(ParamYear)); raw != "" {
		year, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("invalid year '%s': using %d", raw, q.Year))
		case !p.known(year):
			warnings = append(warnings, fmt.Sprintf("unknown year %d: using %d", year, q.Year))
		default:
			q.Year = year
		}
	}

	if err := p.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return DashboardQuery{Year: p.catalog.Default()}, append(warnings, err.Error())
		}
		for _, fe := range verrs {
			warnings = append(warnings, fmt.Sprintf("invalid %s '%v': failed %s", fe.Field(), fe.Value(), fe.Tag()))
			switch fe.Field() {
			case "Year":
				q.Year = p.catalog.Default()
			case "Region":
				q.Region = ""
				q.Entity = ""
			case "Entity":
				q.Entity = ""
			case "CaseType":
				q.CaseType = ""
			case "Group":
				q.Group = ""
			}
		}
	}
	return q, warnings
}

func (p *QueryParser) known(year int) bool {
	_, err := p.catalog.Table(year)
	return err == nil
}
