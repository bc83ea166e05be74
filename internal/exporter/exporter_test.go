package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecocal/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	body := "Id,Name,Impact,Actual\na1,CPI,HIGH,3.1\nb2,\"Trade Balance, s.a.\",LOW,\nc3,PMI,HIGH,50.2\n"
	tbl, err := table.ParseCSV([]byte(body), "Id")
	require.NoError(t, err)
	return tbl
}

func TestFileName(t *testing.T) {
	now := time.Date(2023, 10, 9, 14, 5, 6, 123456000, time.UTC)
	assert.Equal(t, "ecocal_2023-10-09T14:05:06.123456.csv", FileName(now))
}

func TestWriteCalendarCSV(t *testing.T) {
	dir := t.TempDir()
	tbl := sampleTable(t)
	now := time.Date(2023, 10, 9, 0, 0, 0, 0, time.UTC)

	path, err := WriteCalendarCSV(filepath.Join(dir, "out"), tbl, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "ecocal_2023-10-09T"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"ID", "Id", "Name", "Impact", "Actual"}, records[0])
	for i, rec := range records[1:] {
		assert.Equal(t, []string{"0", "1", "2"}[i], rec[0])
		for j, col := range tbl.Columns {
			assert.Equal(t, tbl.Value(i, col).String(), rec[j+1], "row %d column %s", i, col)
		}
	}
	assert.Equal(t, "Trade Balance, s.a.", records[2][2])
	assert.Equal(t, "", records[2][4], "null cells are written empty")
}

func TestWriteCSVFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := WriteCSV(filepath.Join(blocker, "nested", "out.csv"), sampleTable(t))
	require.Error(t, err)

	var exportErr *ExportError
	assert.True(t, errors.As(err, &exportErr))
}

func TestCountByImpact(t *testing.T) {
	counts, err := CountByImpact(sampleTable(t), "Impact")
	require.NoError(t, err)
	assert.Equal(t, []ImpactCount{{Impact: "LOW", Count: 1}, {Impact: "HIGH", Count: 2}}, counts)

	_, err = CountByImpact(sampleTable(t), "Volatility")
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestWriteImpactChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impact.png")
	require.NoError(t, WriteImpactChart(path, sampleTable(t), "Impact"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")), "output should be a PNG")
}

func TestWriteImpactChartEmpty(t *testing.T) {
	err := WriteImpactChart(filepath.Join(t.TempDir(), "x.png"), table.New("Id", "Impact"), "Impact")
	require.Error(t, err)
}
