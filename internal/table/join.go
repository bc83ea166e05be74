package table

import "fmt"

// collisionSuffix is appended to right-hand columns whose name is already
// taken by the left table.
const collisionSuffix = "_detail"

// LeftJoin keeps every row of left and attaches the columns of right whose
// key matches on the given column. Unmatched left rows get null right
// columns, right-only keys are dropped and repeated right keys multiply the
// matching left row.
func LeftJoin(left, right *Table, on string) (*Table, error) {
	leftKey := left.ColumnIndex(on)
	if leftKey < 0 {
		return nil, fmt.Errorf("left join: left %w: %s", ErrMissingColumn, on)
	}
	if right == nil {
		right = New(on)
	}
	rightKey := right.ColumnIndex(on)
	if rightKey < 0 {
		return nil, fmt.Errorf("left join: right %w: %s", ErrMissingColumn, on)
	}

	taken := make(map[string]struct{}, len(left.Columns))
	for _, c := range left.Columns {
		taken[c] = struct{}{}
	}

	columns := append([]string(nil), left.Columns...)
	rightCols := make([]int, 0, len(right.Columns))
	for i, c := range right.Columns {
		if i == rightKey {
			continue
		}
		name := c
		if _, clash := taken[name]; clash {
			name = c + collisionSuffix
		}
		taken[name] = struct{}{}
		columns = append(columns, name)
		rightCols = append(rightCols, i)
	}

	index := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		if rightKey >= len(row) || row[rightKey].IsNull() {
			continue
		}
		k := row[rightKey].String()
		index[k] = append(index[k], i)
	}

	out := New(columns...)
	width := len(left.Columns)
	for _, lrow := range left.Rows {
		var matches []int
		if leftKey < len(lrow) && !lrow[leftKey].IsNull() {
			matches = index[lrow[leftKey].String()]
		}
		if len(matches) == 0 {
			row := make([]Value, len(columns))
			copy(row, lrow)
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, m := range matches {
			row := make([]Value, len(columns))
			copy(row, lrow)
			rrow := right.Rows[m]
			for j, src := range rightCols {
				if src < len(rrow) {
					row[width+j] = rrow[src]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}
