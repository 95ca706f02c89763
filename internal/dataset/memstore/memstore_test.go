package memstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidmx/internal/core"
	"covidmx/internal/dataset"
)

const sample = "\ufeffCLASIFICACION_FINAL,SEXO,FECHA_DEF,EDAD,REGION,ENTIDAD\n" +
	"1,1,9999-99-99,34,Centro,Puebla\n" +
	"1,2,2020-05-02,,Sur,Oaxaca\n"

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, core.ColClassification, tbl.Columns()[0], "byte order mark stripped")

	age, ok := tbl.Row(0).Int(core.ColAge)
	require.True(t, ok)
	assert.Equal(t, 34, age)
	_, ok = tbl.Row(1).Int(core.ColAge)
	assert.False(t, ok, "empty field is NULL")
	assert.True(t, tbl.Row(1).Died())

	tbl, err = ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, tbl.Empty())

	_, err = ReadCSV(strings.NewReader("A,B\n1,2,3\n"))
	assert.Error(t, err)
}

func TestLoadFromMemory(t *testing.T) {
	s := New()
	want := core.NewTable([]string{"EDAD"}, [][]any{{1}})
	s.Put("covid19_2020", want)

	got, err := s.Load(context.Background(), "covid19_2020")
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = s.Load(context.Background(), "covid19_2021")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, dataset.ErrInvalidTable)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "covid19_2021.csv"), []byte(sample), 0o644))
	s := NewFromDir(dir)

	tbl, err := s.Load(context.Background(), "covid19_2021")
	require.NoError(t, err)
	assert.Equal(t, []string{"Centro", "Sur"}, tbl.Distinct(core.ColRegion))

	_, err = s.Load(context.Background(), "covid19_2022")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Ping(context.Background()))
	assert.Error(t, NewFromDir(filepath.Join(dir, "missing")).Ping(context.Background()))
}

func TestLoadCancelled(t *testing.T) {
	s := New()
	s.Put("covid19_2020", core.EmptyTable())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx, "covid19_2020")
	assert.ErrorIs(t, err, context.Canceled)
}
