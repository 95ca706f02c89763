package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"covidmx/internal/amqp"
	"covidmx/internal/core"
	"covidmx/internal/dataset"
	applog "covidmx/internal/log"
)

// sqliteMaxVariables bounds the placeholders of one multi-row insert.
const sqliteMaxVariables = 32766

const DefaultBatchSize = 500

// Columns is the schema of every year table, in migration order.
var Columns = []string{
	"ID_REGISTRO", "FECHA_ACTUALIZACION", "ORIGEN", "SECTOR", "ENTIDAD_UM",
	core.ColSex, "ENTIDAD_NAC", core.ColEntityCode, "MUNICIPIO_RES", core.ColPatientType,
	core.ColAdmissionDate, core.ColSymptomsDate, core.ColDeathDate, core.ColIntubated, "NEUMONIA",
	core.ColAge, "NACIONALIDAD", "EMBARAZO", "HABLA_LENGUA_INDIG", "INDIGENA",
	"DIABETES", "EPOC", "ASMA", "INMUSUPR", "HIPERTENSION",
	"OTRA_COM", "CARDIOVASCULAR", "OBESIDAD", "RENAL_CRONICA", "TABAQUISMO",
	"OTRO_CASO", "TOMA_MUESTRA_LAB", "RESULTADO_LAB", "TOMA_MUESTRA_ANTIGENO", core.ColAntigenResult,
	core.ColClassification, "MIGRANTE", "PAIS_NACIONALIDAD", "PAIS_ORIGEN", "UCI",
	core.ColEntity, core.ColRegion,
}

// Publisher is notified once a year table has been replaced.
type Publisher interface {
	PublishDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error
}

// ImportResult summarises one import.
type ImportResult struct {
	Year     int
	Table    string
	Rows     int64
	Skipped  int64
	Duration time.Duration
}

// Importer loads open-data CSV files into the year tables.
type Importer struct {
	db        *sql.DB
	prefix    string
	entities  *EntityCatalog
	publisher Publisher
	batchSize int
	logger    *applog.Logger
}

type ImporterOption func(*Importer)

// WithPublisher announces finished imports. Publish failures are logged and
// do not fail the import.
func WithPublisher(p Publisher) ImporterOption {
	return func(im *Importer) { im.publisher = p }
}

func WithBatchSize(n int) ImporterOption {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

func WithLogger(l *applog.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

func NewImporter(db *sql.DB, prefix string, entities *EntityCatalog, opts ...ImporterOption) *Importer {
	im := &Importer{
		db:        db,
		prefix:    prefix,
		entities:  entities,
		batchSize: DefaultBatchSize,
		logger:    applog.New(applog.DefaultConfig()),
	}
	for _, o := range opts {
		o(im)
	}
	if limit := sqliteMaxVariables / len(Columns); im.batchSize > limit {
		im.batchSize = limit
	}
	im.logger = im.logger.WithComponent(applog.ComponentImporter)
	return im
}

// ImportCSV replaces the table of year with the rows of r. The whole import
// runs in one transaction, so readers never see a partial table.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, year int) (ImportResult, error) {
	start := time.Now()
	table := fmt.Sprintf("%s%d", im.prefix, year)
	if !dataset.ValidIdentifier(table) {
		return ImportResult{}, fmt.Errorf("%w: %q", dataset.ErrInvalidTable, table)
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read header: %w", err)
	}
	m, err := newRowMapper(header, im.entities)
	if err != nil {
		return ImportResult{}, err
	}

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM "`+table+`"`); err != nil {
		return ImportResult{}, fmt.Errorf("clear %s: %w", table, err)
	}

	res := ImportResult{Year: year, Table: table}
	batch := make([][]any, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertStatement(table, len(batch)), flatten(batch)...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		res.Rows += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			res.Skipped++
			line, _ := cr.FieldPos(0)
			im.logger.WarnContext(ctx, "Skipping malformed line", "line", line, applog.FieldTable, table)
			continue
		}
		if err != nil {
			return ImportResult{}, fmt.Errorf("read csv: %w", err)
		}
		batch = append(batch, m.row(rec))
		if len(batch) == im.batchSize {
			if err := flush(); err != nil {
				return ImportResult{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return ImportResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit import: %w", err)
	}
	res.Duration = time.Since(start)

	im.logger.InfoContext(ctx, "Year table imported",
		applog.FieldYear, year,
		applog.FieldTable, table,
		applog.FieldRows, res.Rows,
		"skipped", res.Skipped,
		applog.FieldDuration, res.Duration.Milliseconds())

	if im.publisher != nil {
		msg := amqp.NewDatasetImportedMessage(year, table, res.Rows)
		if err := im.publisher.PublishDatasetImported(ctx, msg); err != nil {
			im.logger.WarnContext(ctx, "Failed to publish import notification",
				applog.FieldError, err, applog.FieldOperation, applog.OpPublish)
		}
	}
	return res, nil
}

// rowMapper projects a CSV record onto Columns.
type rowMapper struct {
	source   []int // CSV index per column, -1 when absent
	entities *EntityCatalog
	derive   bool
	codeIdx  int
}

func newRowMapper(header []string, entities *EntityCatalog) (*rowMapper, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}

	m := &rowMapper{source: make([]int, len(Columns)), entities: entities, codeIdx: -1}
	matched := 0
	for i, c := range Columns {
		j, ok := index[c]
		if !ok {
			j = -1
		} else {
			matched++
		}
		m.source[i] = j
	}
	if matched == 0 {
		return nil, errors.New("csv header shares no column with the case tables")
	}

	_, hasRegion := index[core.ColRegion]
	_, hasEntity := index[core.ColEntity]
	if j, ok := index[core.ColEntityCode]; ok && (!hasRegion || !hasEntity) {
		if entities == nil {
			return nil, errors.New("entity catalog required to derive REGION and ENTIDAD")
		}
		m.derive = true
		m.codeIdx = j
	}
	return m, nil
}

func (m *rowMapper) row(rec []string) []any {
	out := make([]any, len(Columns))
	for i, j := range m.source {
		if j < 0 || j >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[j]); v != "" {
			out[i] = v
		}
	}
	if m.derive && m.codeIdx < len(rec) {
		code, err := strconv.Atoi(strings.TrimSpace(rec[m.codeIdx]))
		if e, ok := m.entities.Lookup(code); err == nil && ok {
			n := len(Columns)
			if out[n-2] == nil {
				out[n-2] = e.Name
			}
			if out[n-1] == nil {
				out[n-1] = e.Region
			}
		}
	}
	return out
}

func insertStatement(table string, rows int) string {
	var b strings.Builder
	b.WriteString(`INSERT INTO "`)
	b.WriteString(table)
	b.WriteString(`" (`)
	b.WriteString(strings.Join(Columns, ", "))
	b.WriteString(") VALUES ")
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ") + ")"
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

func flatten(rows [][]any) []any {
	out := make([]any, 0, len(rows)*len(Columns))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
