package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidmx/internal/amqp"
	"covidmx/internal/core"
	"covidmx/internal/dataset/sqlstore"
	applog "covidmx/internal/log"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DatasetImportedMessage
	err  error
}

func (p *recordingPublisher) PublishDatasetImported(_ context.Context, msg *amqp.DatasetImportedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "covid.db")
	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

const openDataCSV = `FECHA_ACTUALIZACION,ID_REGISTRO,SEXO,ENTIDAD_RES,TIPO_PACIENTE,FECHA_INGRESO,FECHA_SINTOMAS,FECHA_DEF,INTUBADO,EDAD,DIABETES,CLASIFICACION_FINAL
2021-03-01,z1,1,21,1,2021-01-04,2021-01-02,9999-99-99,97,34,2,3
2021-03-01,z2,2,20,2,2021-01-10,2021-01-05,2021-01-20,1,71,1,3
2021-03-01,z3,2,99,1,2021-02-01,2021-01-30,9999-99-99,97,,2,7
`

func TestEntities(t *testing.T) {
	c, err := LoadEntities()
	require.NoError(t, err)
	assert.Equal(t, 32, c.Len())

	e, ok := c.Lookup(9)
	require.True(t, ok)
	assert.Equal(t, "Ciudad de México", e.Name)
	assert.Equal(t, "Centro", e.Region)

	_, ok = c.Lookup(99)
	assert.False(t, ok)

	_, err = ParseEntities([]byte("entities:\n  - {code: 1, name: A, region: R}\n  - {code: 1, name: B, region: R}\n"))
	assert.Error(t, err)
	_, err = ParseEntities([]byte("entities:\n  - {code: 1, name: A}\n"))
	assert.Error(t, err)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, path := openTestDB(t)

	v, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestImportCSV(t *testing.T) {
	db, path := openTestDB(t)
	entities, err := LoadEntities()
	require.NoError(t, err)
	pub := &recordingPublisher{}
	im := NewImporter(db, "covid19_", entities, WithPublisher(pub), WithBatchSize(2), WithLogger(quietLogger()))
	ctx := context.Background()

	res, err := im.ImportCSV(ctx, strings.NewReader(openDataCSV), 2021)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Rows)
	assert.Equal(t, "covid19_2021", res.Table)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, 2021, pub.msgs[0].Year)
	assert.Equal(t, int64(3), pub.msgs[0].Rows)

	store, err := sqlstore.New(sqlstore.SQLite, path, 0)
	require.NoError(t, err)
	tbl, err := store.Load(ctx, "covid19_2021")
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, Columns, tbl.Columns())

	first := tbl.Row(0)
	assert.True(t, first.Is(core.ColClassification, 3))
	entity, _ := first.String(core.ColEntity)
	region, _ := first.String(core.ColRegion)
	assert.Equal(t, "Puebla", entity)
	assert.Equal(t, "Centro", region)
	assert.False(t, first.Died())
	assert.True(t, tbl.Row(1).Died())

	_, ok := tbl.Row(2).Int(core.ColAge)
	assert.False(t, ok, "empty field imported as NULL")
	_, ok = tbl.Row(2).String(core.ColRegion)
	assert.False(t, ok, "unknown entity code leaves REGION NULL")

	// a second import replaces the table
	_, err = im.ImportCSV(ctx, strings.NewReader(strings.Join(strings.SplitN(openDataCSV, "\n", 3)[:2], "\n")+"\n"), 2021)
	require.NoError(t, err)
	tbl, err = store.Load(ctx, "covid19_2021")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestImportCSVSkipsMalformedLines(t *testing.T) {
	db, _ := openTestDB(t)
	im := NewImporter(db, "covid19_", nil, WithLogger(quietLogger()))

	csv := "SEXO,EDAD,REGION,ENTIDAD\n1,30,Sur,Oaxaca\n2,40\n1,50,Norte,Sonora\n"
	res, err := im.ImportCSV(context.Background(), strings.NewReader(csv), 2020)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, int64(1), res.Skipped)
}

func TestImportCSVReportsPhysicalLineOfMalformedRecord(t *testing.T) {
	db, _ := openTestDB(t)
	var logs bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&logs, nil)})
	im := NewImporter(db, "covid19_", nil, WithLogger(logger))

	csv := "SEXO,EDAD,REGION,ENTIDAD\n1,30,\"Sur\nPeninsular\",Oaxaca\n2,40\n"
	res, err := im.ImportCSV(context.Background(), strings.NewReader(csv), 2020)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows)
	assert.Equal(t, int64(1), res.Skipped)
	assert.Contains(t, logs.String(), "line=4")
}

func TestImportCSVErrors(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	im := NewImporter(db, "covid19_", nil, WithLogger(quietLogger()))
	_, err := im.ImportCSV(ctx, strings.NewReader("FOO,BAR\n1,2\n"), 2020)
	assert.Error(t, err, "no known column")

	_, err = im.ImportCSV(ctx, strings.NewReader("SEXO,ENTIDAD_RES\n1,9\n"), 2020)
	assert.Error(t, err, "entity codes without a catalog")

	_, err = im.ImportCSV(ctx, strings.NewReader("SEXO\n1\n"), 1999)
	assert.Error(t, err, "no table for that year")

	bad := NewImporter(db, "covid-19;", nil, WithLogger(quietLogger()))
	_, err = bad.ImportCSV(ctx, strings.NewReader("SEXO\n1\n"), 2020)
	assert.Error(t, err)
}

func TestImportSurvivesPublishFailure(t *testing.T) {
	db, _ := openTestDB(t)
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	im := NewImporter(db, "covid19_", nil, WithPublisher(pub), WithLogger(quietLogger()))

	res, err := im.ImportCSV(context.Background(), strings.NewReader("SEXO,EDAD\n1,30\n"), 2022)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows)
	assert.Len(t, pub.msgs, 1)
}

func TestInsertStatement(t *testing.T) {
	stmt := insertStatement("covid19_2020", 2)
	assert.True(t, strings.HasPrefix(stmt, `INSERT INTO "covid19_2020" (ID_REGISTRO, `))
	assert.Equal(t, 2*len(Columns), strings.Count(stmt, "?"))
}
