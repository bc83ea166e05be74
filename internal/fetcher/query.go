package fetcher

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// DefaultStart and DefaultEnd bound the horizon when no dates are given.
	DefaultStart = "2023-10-08"
	DefaultEnd   = "2023-10-10"

	startOfDay = "T00:00:00Z"
	endOfDay   = "T23:59:59Z"
)

// Horizon is the inclusive [Start, End] day window of a calendar query.
type Horizon struct {
	Start string
	End   string
}

// Defaults override DefaultStart/DefaultEnd. Empty fields fall back to them.
type Defaults struct {
	Start string
	End   string
}

// NewHorizon normalises start and end, which may each be nil, an empty
// string, a time.Time, a *time.Time or a YYYY-MM-DD string.
//
// With no start, the default start is used and end falls back to the
// default end when it is also omitted. With a start but no end, the window
// is the single start day.
func NewHorizon(start, end any, defaults Defaults) (Horizon, error) {
	s, err := normaliseDate(start)
	if err != nil {
		return Horizon{}, fmt.Errorf("%w: start: %v", ErrInvalidHorizon, err)
	}
	e, err := normaliseDate(end)
	if err != nil {
		return Horizon{}, fmt.Errorf("%w: end: %v", ErrInvalidHorizon, err)
	}

	defStart := defaults.Start
	if defStart == "" {
		defStart = DefaultStart
	}
	defEnd := defaults.End
	if defEnd == "" {
		defEnd = DefaultEnd
	}

	switch {
	case s == "" && e == "":
		s, e = defStart, defEnd
	case s == "":
		s = defStart
	case e == "":
		e = s
	}

	h := Horizon{Start: s, End: e}
	if err := h.Validate(); err != nil {
		return Horizon{}, err
	}
	return h, nil
}

// Validate checks both bounds parse and Start is not after End.
func (h Horizon) Validate() error {
	from, err := time.Parse(dateLayout, h.Start)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidHorizon, h.Start)
	}
	to, err := time.Parse(dateLayout, h.End)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidHorizon, h.End)
	}
	if from.After(to) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidHorizon, h.Start, h.End)
	}
	return nil
}

// From returns the start of the first day in UTC.
func (h Horizon) From() time.Time {
	t, _ := time.Parse(dateLayout, h.Start)
	return t
}

// To returns the last second of the final day in UTC.
func (h Horizon) To() time.Time {
	t, _ := time.Parse(dateLayout, h.End)
	return t.Add(24*time.Hour - time.Second)
}

func (h Horizon) String() string {
	return h.Start + ".." + h.End
}

func normaliseDate(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case string:
		d = strings.TrimSpace(d)
		if d == "" {
			return "", nil
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return "", fmt.Errorf("expected YYYY-MM-DD, got %q", d)
		}
		return d, nil
	case time.Time:
		if d.IsZero() {
			return "", nil
		}
		return d.Format(dateLayout), nil
	case *time.Time:
		if d == nil || d.IsZero() {
			return "", nil
		}
		return d.Format(dateLayout), nil
	default:
		return "", fmt.Errorf("unsupported date type %T", v)
	}
}

// Filters are the repeated query parameters sent with every calendar query.
type Filters struct {
	Volatilities []string
	Countries    []string
	Categories   []string
}

// DefaultFilters returns the fixed filter set the calendar is built with.
func DefaultFilters() Filters {
	return Filters{
		Volatilities: []string{"NONE", "LOW", "MEDIUM", "HIGH"},
		Countries: []string{
			"US", "UK", "EMU", "DE", "CN", "JP", "CA",
			"AU", "NZ", "CH", "FR", "IT", "ES", "UA",
		},
		Categories: []string{
			"8896AA26-A50C-4F8B-AA11-8B3FCCDA1DFD",
			"FA6570F6-E494-4563-A363-00D0F2ABEC37",
			"C94405B5-5F85-4397-AB11-002A481C4B92",
			"E229C890-80FC-40F3-B6F4-B658F3A02635",
			"24127F3B-EDCE-4DC4-AFDF-0B3BD8A964BE",
			"DD332FD3-6996-41BE-8C41-33F277074FA7",
			"7DFAEF86-C3FE-4E76-9421-8958CC2F9A0D",
			"1E06A304-FAC6-440C-9CED-9225A6277A55",
			"33303F5E-1E3C-4016-AB2D-AC87E98F57CA",
			"9C4A731A-D993-4D55-89F3-DC707CC1D596",
			"91DA97BD-D94A-4CE8-A02B-B96EE2944E4C",
			"E9E957EC-2927-4A77-AE0C-F5E4B5807C16",
		},
	}
}

// QueryURL builds the calendar query for h against base.
func (h Horizon) QueryURL(base string, f Filters) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(h.Start)
	b.WriteString(startOfDay)
	b.WriteByte('/')
	b.WriteString(h.End)
	b.WriteString(endOfDay)

	sep := byte('?')
	add := func(key string, values []string) {
		for _, v := range values {
			b.WriteByte(sep)
			sep = '&'
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	add("volatilities", f.Volatilities)
	add("countries", f.Countries)
	add("categories", f.Categories)

	return b.String()
}
