package table

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarCSV = `Id,Start,Name,Impact,Currency,Unit,Actual,Consensus,Previous,Country
a1,10/09/2023 00:30:00,Westpac Consumer Confidence,LOW,AUD,%,2.9,,-1.5,AU
b2,10/09/2023 12:30:00,Nonfarm Payrolls,HIGH,USD,K,336,170,227,US
c3,10/10/2023 06:00:00,"Trade Balance, s.a.",MEDIUM,EUR,B,,,,DE
`

func TestParseCSV(t *testing.T) {
	tbl, err := ParseCSV([]byte(calendarCSV), "Id")
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "Start", "Name", "Impact", "Currency", "Unit", "Actual", "Consensus", "Previous", "Country"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())

	assert.Equal(t, "Trade Balance, s.a.", tbl.Value(2, "Name").String())
	assert.True(t, tbl.Value(0, "Consensus").IsNull(), "empty numeric field should be null")
	assert.True(t, tbl.Value(2, "Actual").IsNull())

	actual := tbl.Value(1, "Actual")
	require.Equal(t, KindNumber, actual.Kind)
	assert.True(t, actual.Num.Equal(decimal.NewFromInt(336)))

	prev := tbl.Value(0, "Previous")
	require.Equal(t, KindNumber, prev.Kind)
	assert.Equal(t, "-1.5", prev.String())

	ids, err := tbl.Strings("Id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2", "c3"}, ids)
}

func TestParseCSVMissingIdentifier(t *testing.T) {
	_, err := ParseCSV([]byte("Name,Impact\nfoo,LOW\n"), "Id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestParseCSVEmptyBody(t *testing.T) {
	_, err := ParseCSV(nil, "Id")
	require.Error(t, err)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	tbl, err := ParseCSV([]byte("Id,Name\n"), "Id")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestParseCSVShortRowPadsNull(t *testing.T) {
	tbl, err := ParseCSV([]byte("Id,Name,Actual\nx,foo\n"), "Id")
	require.NoError(t, err)
	assert.True(t, tbl.Value(0, "Actual").IsNull())
}

func TestParseField(t *testing.T) {
	cases := []struct {
		raw  string
		kind Kind
		out  string
	}{
		{"", KindNull, ""},
		{"  ", KindNull, ""},
		{"1.25", KindNumber, "1.25"},
		{"-0.3", KindNumber, "-0.3"},
		{"NaN", KindString, "NaN"},
		{"+5", KindString, "+5"},
		{"8896AA26-A50C-4F8B-AA11-8B3FCCDA1DFD", KindString, "8896AA26-A50C-4F8B-AA11-8B3FCCDA1DFD"},
		{"HIGH", KindString, "HIGH"},
	}
	for _, tc := range cases {
		v := ParseField(tc.raw)
		assert.Equal(t, tc.kind, v.Kind, "raw %q", tc.raw)
		assert.Equal(t, tc.out, v.String(), "raw %q", tc.raw)
	}
}

func TestFromJSON(t *testing.T) {
	assert.True(t, FromJSON(nil).IsNull())
	assert.Equal(t, "true", FromJSON(true).String())
	assert.Equal(t, KindNumber, FromJSON(1.5).Kind)
	assert.Equal(t, `{"a":1}`, FromJSON(map[string]any{"a": 1}).String())
	assert.Equal(t, `[1,2]`, FromJSON([]any{1, 2}).String())
}
