// Package calendar exposes the economic calendar session: a horizon, its
// calendar table and, on demand, the detail records merged onto it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ecocal/internal/exporter"
	"ecocal/internal/fetcher"
	"ecocal/internal/table"
)

// Options configure a Calendar.
type Options struct {
	// Start and End accept nil, a time.Time or a YYYY-MM-DD string.
	Start any
	End   any
	// Defaults replace the built-in default horizon dates.
	Defaults fetcher.Defaults
	// PreBuild fetches the calendar table during New.
	PreBuild bool
	IDColumn string

	Calendar fetcher.CalendarFetcher
	Details  fetcher.DetailFetcher

	ExportDir string
	// Now is the clock used for export file names.
	Now func() time.Time
}

// Calendar holds one horizon's calendar and details tables. Each table is
// fetched at most once unless explicitly rebuilt.
type Calendar struct {
	mu sync.Mutex

	horizon   fetcher.Horizon
	idColumn  string
	calFetch  fetcher.CalendarFetcher
	detFetch  fetcher.DetailFetcher
	exportDir string
	now       func() time.Time
	logger    zerolog.Logger

	calendar   *table.Table
	details    *table.Table
	hasTable   bool
	hasDetails bool
	skipped    []string
	dropped    []string
}

// New builds a session. When opts.PreBuild is set the calendar table is
// fetched immediately and a failure aborts construction.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (*Calendar, error) {
	if opts.Calendar == nil {
		return nil, errors.New("construct calendar: calendar fetcher required")
	}
	if opts.Details == nil {
		return nil, errors.New("construct calendar: detail fetcher required")
	}

	horizon, err := fetcher.NewHorizon(opts.Start, opts.End, opts.Defaults)
	if err != nil {
		return nil, fmt.Errorf("construct calendar: %w", err)
	}

	idColumn := opts.IDColumn
	if idColumn == "" {
		idColumn = "Id"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Calendar{
		horizon:   horizon,
		idColumn:  idColumn,
		calFetch:  opts.Calendar,
		detFetch:  opts.Details,
		exportDir: opts.ExportDir,
		now:       now,
		logger:    logger.With().Str("component", "calendar").Str("horizon", horizon.String()).Logger(),
	}

	if opts.PreBuild {
		if _, err := c.RebuildCalendar(ctx); err != nil {
			return nil, fmt.Errorf("construct calendar: %w", err)
		}
	}
	return c, nil
}

// Horizon returns the normalised query window.
func (c *Calendar) Horizon() fetcher.Horizon {
	return c.horizon
}

// HasCalendar reports whether the calendar table has been collected.
func (c *Calendar) HasCalendar() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasTable
}

// HasDetails reports whether the details table has been collected.
func (c *Calendar) HasDetails() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasDetails
}

// GetCalendar returns the calendar table, or the calendar merged with its
// details when withDetails is set. Tables already collected are reused.
func (c *Calendar) GetCalendar(ctx context.Context, withDetails bool) (*table.Table, error) {
	if withDetails {
		return c.Merged(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureCalendar(ctx); err != nil {
		return nil, err
	}
	return c.calendar, nil
}

// Details returns the details table, collecting it if needed.
func (c *Calendar) Details(ctx context.Context) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureDetails(ctx); err != nil {
		return nil, err
	}
	return c.details, nil
}

// Merged left-joins the calendar with its details on the identifier column.
func (c *Calendar) Merged(ctx context.Context) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureDetails(ctx); err != nil {
		return nil, err
	}
	merged, err := table.LeftJoin(c.calendar, c.details, c.idColumn)
	if err != nil {
		return nil, fmt.Errorf("merge details: %w", err)
	}
	return merged, nil
}

// SaveCalendar exports the raw calendar table and returns the file path.
func (c *Calendar) SaveCalendar(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureCalendar(ctx); err != nil {
		return "", err
	}
	path, err := exporter.WriteCalendarCSV(c.exportDir, c.calendar, c.now())
	if err != nil {
		return "", fmt.Errorf("save calendar: %w", err)
	}
	c.logger.Info().Str("path", path).Int("rows", c.calendar.Len()).Msg("calendar exported")
	return path, nil
}

// RebuildCalendar re-fetches the calendar table unconditionally. Details
// collected for the previous table are discarded.
func (c *Calendar) RebuildCalendar(ctx context.Context) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.buildCalendar(ctx); err != nil {
		return nil, err
	}
	return c.calendar, nil
}

// RebuildDetails re-fetches the details table unconditionally.
func (c *Calendar) RebuildDetails(ctx context.Context) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureCalendar(ctx); err != nil {
		return nil, err
	}
	if err := c.buildDetails(ctx); err != nil {
		return nil, err
	}
	return c.details, nil
}

// Skipped lists identifiers whose detail request got a non-200 response in
// the last detail fetch.
func (c *Calendar) Skipped() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.skipped...)
}

// Dropped lists identifiers of the trailing partial batch that were never
// requested in the last detail fetch.
func (c *Calendar) Dropped() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.dropped...)
}

func (c *Calendar) ensureCalendar(ctx context.Context) error {
	if c.hasTable {
		return nil
	}
	return c.buildCalendar(ctx)
}

func (c *Calendar) ensureDetails(ctx context.Context) error {
	if err := c.ensureCalendar(ctx); err != nil {
		return err
	}
	if c.hasDetails {
		return nil
	}
	return c.buildDetails(ctx)
}

func (c *Calendar) buildCalendar(ctx context.Context) error {
	tbl, err := c.calFetch.FetchCalendar(ctx, c.horizon)
	if err != nil {
		return fmt.Errorf("build calendar: %w", err)
	}

	c.calendar = tbl
	c.hasTable = true
	c.details = nil
	c.hasDetails = false
	c.skipped = nil
	c.dropped = nil

	c.logger.Info().Int("rows", tbl.Len()).Msg("calendar collected")
	return nil
}

func (c *Calendar) buildDetails(ctx context.Context) error {
	ids, err := c.calendar.Strings(c.idColumn)
	if err != nil {
		return fmt.Errorf("build details: %w", err)
	}

	res, err := c.detFetch.FetchDetails(ctx, ids)
	if err != nil {
		return fmt.Errorf("build details: %w", err)
	}

	c.details = table.FromRecords(res.Records, ids, c.idColumn)
	c.hasDetails = true
	c.skipped = res.Skipped
	c.dropped = res.Dropped

	c.logger.Info().
		Int("requested", res.Requested).
		Int("records", len(res.Records)).
		Int("skipped", len(res.Skipped)).
		Int("dropped", len(res.Dropped)).
		Msg("details collected")
	return nil
}

// URL returns the calendar request URL for the session horizon, or an empty
// string when the calendar fetcher does not expose one.
func (c *Calendar) URL() string {
	if u, ok := c.calFetch.(interface{ URL(fetcher.Horizon) string }); ok {
		return u.URL(c.horizon)
	}
	return ""
}
