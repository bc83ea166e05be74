package table

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a single nullable cell of a table.
type Value struct {
	Kind Kind
	Str  string
	Num  decimal.Decimal
}

// Null is the empty cell.
var Null = Value{}

// StringValue wraps s as a string cell.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue wraps d as a numeric cell.
func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Num: d}
}

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String renders the cell the way it is written to CSV. Null renders empty.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num.String()
	default:
		return ""
	}
}

// Equal compares two cells. Numbers compare by value, not representation.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num.Equal(o.Num)
	default:
		return true
	}
}

// ParseField converts a raw delimited field into a cell. Empty fields are
// null, numeric-looking fields become numbers, everything else stays text.
func ParseField(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null
	}
	if looksNumeric(trimmed) {
		if d, err := decimal.NewFromString(trimmed); err == nil {
			return NumberValue(d)
		}
	}
	return StringValue(raw)
}

// looksNumeric rejects inputs decimal would accept but that are not plain
// numbers in a CSV body (hex-ish ids, "Inf", leading '+' etc.).
func looksNumeric(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	lower := strings.ToLower(s)
	return !strings.Contains(lower, "inf") && !strings.Contains(lower, "nan") && !strings.HasPrefix(s, "+")
}

// FromJSON converts a decoded JSON value into a cell. Nested objects and
// arrays are kept as compact JSON text.
func FromJSON(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null
	case string:
		return StringValue(x)
	case bool:
		return StringValue(strconv.FormatBool(x))
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return NumberValue(d)
		}
		return StringValue(x.String())
	case float64:
		return NumberValue(decimal.NewFromFloat(x))
	case int:
		return NumberValue(decimal.NewFromInt(int64(x)))
	case int64:
		return NumberValue(decimal.NewFromInt(x))
	case decimal.Decimal:
		return NumberValue(x)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return Null
		}
		return StringValue(string(raw))
	}
}
