// Package table holds the in-memory tabular model shared by the calendar,
// details and merged datasets.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("table: missing column")
)

// Table is an ordered sequence of rows sharing one column list.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of name or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is one of the columns.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Value returns the cell at row/column name, or Null when out of range.
func (t *Table) Value(row int, column string) Value {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return Null
	}
	return t.Rows[row][idx]
}

// Column returns a copy of every cell in the named column.
func (t *Table) Column(name string) ([]Value, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// Strings returns the named column rendered as strings.
func (t *Table) Strings(name string) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out, nil
}

// Append adds a row. Short rows are padded with nulls.
func (t *Table) Append(row []Value) {
	if len(row) < len(t.Columns) {
		padded := make([]Value, len(t.Columns))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
}

// ParseCSV reads a header-first delimited body. idColumn must be present in
// the header; an empty idColumn disables that check.
func ParseCSV(body []byte, idColumn string) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF})))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse csv: empty body")
		}
		return nil, fmt.Errorf("parse csv header: %w", err)
	}

	t := New(header...)
	if idColumn != "" && !t.HasColumn(idColumn) {
		return nil, fmt.Errorf("parse csv: %w: %s", ErrMissingColumn, idColumn)
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("parse csv line %d: %w", line, err)
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("parse csv line %d: %d fields, header has %d", line, len(record), len(header))
		}
		row := make([]Value, len(header))
		for i, field := range record {
			row[i] = ParseField(field)
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
