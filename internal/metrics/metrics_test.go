package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDetailRequestCounts(t *testing.T) {
	m := New()
	m.DetailRequest(OutcomeOK)
	m.DetailRequest(OutcomeOK)
	m.DetailRequest(OutcomeMissing)
	m.DetailsDropped(3)
	m.DetailsDropped(0)

	if got := testutil.ToFloat64(m.detailRequests.WithLabelValues(OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.detailRequests.WithLabelValues(OutcomeMissing)); got != 1 {
		t.Fatalf("expected 1 missing request, got %v", got)
	}
	if got := testutil.ToFloat64(m.detailDropped); got != 3 {
		t.Fatalf("expected 3 dropped, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.DetailRequest(OutcomeOK)
	m.ObserveCalendar(1, 2, 3)
	m.CalendarFailed()
	m.DetailsDropped(1)
	if m.Registry() != nil {
		t.Fatal("nil metrics should expose no registry")
	}
}

func TestHandlerServesCollectors(t *testing.T) {
	m := New()
	m.ObserveCalendar(0.2, 42, 1700000000)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ecocal_calendar_rows 42") {
		t.Fatalf("metrics output missing calendar rows:\n%s", body)
	}
}
