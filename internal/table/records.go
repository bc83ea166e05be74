package table

import (
	"sort"
)

// recordIDKey is the identifier key used by the provider's detail payloads.
const recordIDKey = "id"

// FromRecords transposes detail records into a table with one row per
// identifier. order fixes the row order; identifiers without a record are
// skipped, records whose identifier is not in order are appended sorted.
// The record's own "id" key is folded into idColumn.
func FromRecords(records map[string]map[string]any, order []string, idColumn string) *Table {
	keys := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			if k == recordIDKey || k == idColumn {
				continue
			}
			keys[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(keys)+1)
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	columns = append([]string{idColumn}, columns...)

	t := New(columns...)
	seen := make(map[string]struct{}, len(records))
	add := func(id string) {
		rec, ok := records[id]
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		row := make([]Value, len(columns))
		row[0] = StringValue(id)
		for i, col := range columns[1:] {
			row[i+1] = FromJSON(rec[col])
		}
		t.Rows = append(t.Rows, row)
	}

	for _, id := range order {
		add(id)
	}

	var rest []string
	for id := range records {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		add(id)
	}

	return t
}
