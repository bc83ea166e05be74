package fetcher

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestNewHorizonDefaults(t *testing.T) {
	cases := []struct {
		name       string
		start, end any
		want       Horizon
	}{
		{"both omitted", nil, nil, Horizon{DefaultStart, DefaultEnd}},
		{"empty strings", "", "", Horizon{DefaultStart, DefaultEnd}},
		{"only end", nil, "2023-10-20", Horizon{DefaultStart, "2023-10-20"}},
		{"only start", "2023-11-01", nil, Horizon{"2023-11-01", "2023-11-01"}},
		{"both strings", "2023-11-01", "2023-11-03", Horizon{"2023-11-01", "2023-11-03"}},
		{
			"time values",
			time.Date(2024, 2, 28, 22, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC),
			Horizon{"2024-02-28", "2024-03-01"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewHorizon(tc.start, tc.end, Defaults{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNewHorizonConfiguredDefaults(t *testing.T) {
	got, err := NewHorizon(nil, nil, Defaults{Start: "2024-01-01", End: "2024-01-07"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Start != "2024-01-01" || got.End != "2024-01-07" {
		t.Fatalf("configured defaults ignored: %+v", got)
	}
}

func TestNewHorizonInvalid(t *testing.T) {
	inputs := [][2]any{
		{"2023-10-10", "2023-10-09"},
		{"10/09/2023", nil},
		{nil, "tomorrow"},
		{42, nil},
	}
	for _, in := range inputs {
		if _, err := NewHorizon(in[0], in[1], Defaults{}); !errors.Is(err, ErrInvalidHorizon) {
			t.Fatalf("NewHorizon(%v, %v): expected ErrInvalidHorizon, got %v", in[0], in[1], err)
		}
	}
}

func TestHorizonBounds(t *testing.T) {
	h := Horizon{Start: "2023-10-08", End: "2023-10-10"}
	if got := h.From(); !got.Equal(time.Date(2023, 10, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %s", got)
	}
	if got := h.To(); !got.Equal(time.Date(2023, 10, 10, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected to %s", got)
	}
}

func TestQueryURL(t *testing.T) {
	h := Horizon{Start: "2023-10-08", End: "2023-10-10"}
	filters := DefaultFilters()
	raw := h.QueryURL("https://calendar-api.fxstreet.com/en/api/v1/eventDates/", filters)

	prefix := "https://calendar-api.fxstreet.com/en/api/v1/eventDates/2023-10-08T00:00:00Z/2023-10-10T23:59:59Z?"
	if !strings.HasPrefix(raw, prefix) {
		t.Fatalf("unexpected prefix: %s", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("query url does not parse: %v", err)
	}
	q := u.Query()

	check := func(key string, want []string) {
		got := q[key]
		if len(got) != len(want) {
			t.Fatalf("%s: got %d values, want %d", key, len(got), len(want))
		}
		counts := map[string]int{}
		for _, v := range got {
			counts[v]++
		}
		for _, v := range want {
			if counts[v] != 1 {
				t.Fatalf("%s=%s appears %d times", key, v, counts[v])
			}
		}
	}
	check("volatilities", filters.Volatilities)
	check("countries", filters.Countries)
	check("categories", filters.Categories)

	if len(q) != 3 {
		t.Fatalf("unexpected extra parameters: %v", q)
	}
}

func TestDefaultFiltersFixed(t *testing.T) {
	f := DefaultFilters()
	if len(f.Volatilities) != 4 || len(f.Countries) != 14 || len(f.Categories) != 12 {
		t.Fatalf("unexpected filter sizes %d/%d/%d", len(f.Volatilities), len(f.Countries), len(f.Categories))
	}
	f.Countries[0] = "XX"
	if DefaultFilters().Countries[0] != "US" {
		t.Fatal("DefaultFilters must return a fresh copy")
	}
}
