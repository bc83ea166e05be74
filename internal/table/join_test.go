package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarFixture(ids ...string) *Table {
	t := New("Id", "Name")
	for _, id := range ids {
		t.Append([]Value{StringValue(id), StringValue("event " + id)})
	}
	return t
}

func TestFromRecordsRenamesIdentifier(t *testing.T) {
	records := map[string]map[string]any{
		"b": {"id": "b", "actual": 1.0, "volatility": "HIGH"},
		"a": {"id": "a", "actual": nil, "isSpeech": true},
	}
	tbl := FromRecords(records, []string{"a", "b"}, "Id")

	assert.Equal(t, []string{"Id", "actual", "isSpeech", "volatility"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "a", tbl.Value(0, "Id").String())
	assert.True(t, tbl.Value(0, "actual").IsNull())
	assert.Equal(t, "true", tbl.Value(0, "isSpeech").String())
	assert.True(t, tbl.Value(1, "isSpeech").IsNull())
	assert.Equal(t, "HIGH", tbl.Value(1, "volatility").String())
}

func TestFromRecordsEmpty(t *testing.T) {
	tbl := FromRecords(nil, nil, "Id")
	assert.Equal(t, []string{"Id"}, tbl.Columns)
	assert.Equal(t, 0, tbl.Len())
}

func TestLeftJoinKeepsEveryLeftRow(t *testing.T) {
	left := calendarFixture("a", "b", "c")
	right := FromRecords(map[string]map[string]any{
		"a":     {"id": "a", "actual": 1.0},
		"c":     {"id": "c", "actual": 3.0},
		"ghost": {"id": "ghost", "actual": 9.0},
	}, []string{"a", "c", "ghost"}, "Id")

	merged, err := LeftJoin(left, right, "Id")
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "Name", "actual"}, merged.Columns)
	require.Equal(t, 3, merged.Len())

	ids, err := merged.Strings("Id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids, "detail-only ids must not appear")

	assert.Equal(t, "1", merged.Value(0, "actual").String())
	assert.True(t, merged.Value(1, "actual").IsNull())
	assert.Equal(t, "3", merged.Value(2, "actual").String())
}

func TestLeftJoinDuplicateRightKeysMultiply(t *testing.T) {
	left := calendarFixture("a", "b")
	right := New("Id", "rev")
	right.Append([]Value{StringValue("a"), StringValue("r1")})
	right.Append([]Value{StringValue("a"), StringValue("r2")})

	merged, err := LeftJoin(left, right, "Id")
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, "r1", merged.Value(0, "rev").String())
	assert.Equal(t, "r2", merged.Value(1, "rev").String())
	assert.Equal(t, "b", merged.Value(2, "Id").String())
}

func TestLeftJoinColumnCollision(t *testing.T) {
	left := calendarFixture("a")
	right := New("Id", "Name")
	right.Append([]Value{StringValue("a"), StringValue("detail name")})

	merged, err := LeftJoin(left, right, "Id")
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Name", "Name_detail"}, merged.Columns)
	assert.Equal(t, "event a", merged.Value(0, "Name").String())
	assert.Equal(t, "detail name", merged.Value(0, "Name_detail").String())
}

func TestLeftJoinMissingKey(t *testing.T) {
	_, err := LeftJoin(New("Name"), New("Id"), "Id")
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = LeftJoin(New("Id"), New("Name"), "Id")
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestLeftJoinNilRight(t *testing.T) {
	merged, err := LeftJoin(calendarFixture("a"), nil, "Id")
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())
	assert.Equal(t, []string{"Id", "Name"}, merged.Columns)
}
