package exporter

import (
	"errors"
	"os"
	"sort"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"ecocal/internal/table"
)

// impactOrder ranks the provider's volatility levels for display.
var impactOrder = map[string]int{"NONE": 0, "LOW": 1, "MEDIUM": 2, "HIGH": 3}

// ImpactCount is the number of events at one impact level.
type ImpactCount struct {
	Impact string
	Count  int
}

// CountByImpact tallies rows of t by impactColumn. Null impacts are counted
// under "NONE".
func CountByImpact(t *table.Table, impactColumn string) ([]ImpactCount, error) {
	values, err := t.Column(impactColumn)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, v := range values {
		key := strings.ToUpper(strings.TrimSpace(v.String()))
		if key == "" {
			key = "NONE"
		}
		counts[key]++
	}

	out := make([]ImpactCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ImpactCount{Impact: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, okI := impactOrder[out[i].Impact]
		rj, okJ := impactOrder[out[j].Impact]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return out[i].Impact < out[j].Impact
		}
	})
	return out, nil
}

// WriteImpactChart renders a bar chart of event counts per impact level.
func WriteImpactChart(path string, t *table.Table, impactColumn string) error {
	if t == nil || t.Len() == 0 {
		return &ExportError{Path: path, Err: errors.New("no events to chart")}
	}

	counts, err := CountByImpact(t, impactColumn)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}

	bars := make([]chart.Value, 0, len(counts))
	peak := 0
	for _, c := range counts {
		bars = append(bars, chart.Value{Label: c.Impact, Value: float64(c.Count)})
		if c.Count > peak {
			peak = c.Count
		}
	}

	graph := chart.BarChart{
		Title:  "Events by impact",
		Width:  1024,
		Height: 512,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 80,
		YAxis: chart.YAxis{
			Name:  "Events",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(peak + 1)},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	if err := ensureDir(path); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	file, err := os.Create(path)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}
