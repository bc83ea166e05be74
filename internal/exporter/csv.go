package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ecocal/internal/table"
)

const (
	// IndexLabel heads the row index column of every export.
	IndexLabel = "ID"

	filePrefix      = "ecocal_"
	timestampLayout = "2006-01-02T15:04:05.000000"
)

// ExportError wraps a failure to write an export file.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// FileName returns the export file name for a snapshot taken at now.
func FileName(now time.Time) string {
	return filePrefix + now.Format(timestampLayout) + ".csv"
}

// WriteCalendarCSV writes t to dir under a timestamped name and returns
// the path written.
func WriteCalendarCSV(dir string, t *table.Table, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(now))
	if err := WriteCSV(path, t); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCSV writes t to path with a leading zero-based index column.
// Null cells are written as empty fields.
func WriteCSV(path string, t *table.Table) error {
	if t == nil {
		return &ExportError{Path: path, Err: fmt.Errorf("no table to export")}
	}
	if err := ensureDir(path); err != nil {
		return &ExportError{Path: path, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}

	if err := writeRows(file, t); err != nil {
		_ = file.Close()
		return &ExportError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeRows(file *os.File, t *table.Table) error {
	writer := csv.NewWriter(file)

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, IndexLabel)
	header = append(header, t.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range t.Rows {
		record[0] = strconv.Itoa(i)
		for j := range t.Columns {
			record[j+1] = ""
			if j < len(row) {
				record[j+1] = row[j].String()
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
