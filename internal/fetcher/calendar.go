package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ecocal/internal/metrics"
	"ecocal/internal/table"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// CalendarOptions parameterise the calendar builder.
type CalendarOptions struct {
	IDColumn string
	Filters  Filters
}

// Calendar queries the event dates endpoint for a horizon.
type Calendar struct {
	client  *Client
	opts    CalendarOptions
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCalendar constructs a calendar fetcher on top of client.
func NewCalendar(client *Client, opts CalendarOptions, m *metrics.Metrics, logger zerolog.Logger) *Calendar {
	if opts.IDColumn == "" {
		opts.IDColumn = "Id"
	}
	if len(opts.Filters.Volatilities)+len(opts.Filters.Countries)+len(opts.Filters.Categories) == 0 {
		opts.Filters = DefaultFilters()
	}
	return &Calendar{
		client:  client,
		opts:    opts,
		metrics: m,
		logger:  logger.With().Str("component", "calendar_fetcher").Logger(),
	}
}

// URL returns the query the fetcher issues for horizon.
func (c *Calendar) URL(horizon Horizon) string {
	return horizon.QueryURL(c.client.BaseURL(), c.opts.Filters)
}

// FetchCalendar downloads and parses the calendar table for horizon.
func (c *Calendar) FetchCalendar(ctx context.Context, horizon Horizon) (*table.Table, error) {
	if err := horizon.Validate(); err != nil {
		return nil, err
	}

	url := c.URL(horizon)
	started := time.Now()
	status, body, err := c.client.Get(ctx, url, acceptCSV)
	elapsed := time.Since(started)
	if err != nil {
		c.metrics.CalendarFailed()
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}

	c.logger.Info().
		Str("horizon", horizon.String()).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("calendar query completed")

	if status != http.StatusOK {
		c.metrics.CalendarFailed()
		return nil, fmt.Errorf("fetch calendar: %w", newStatusError(url, status, body))
	}

	tbl, err := table.ParseCSV(body, c.opts.IDColumn)
	if err != nil {
		c.metrics.CalendarFailed()
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}

	c.metrics.ObserveCalendar(elapsed.Seconds(), tbl.Len(), float64(time.Now().Unix()))
	return tbl, nil
}

func newStatusError(url string, status int, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return &StatusError{URL: url, Code: status, Body: msg}
}

var _ CalendarFetcher = (*Calendar)(nil)
