package fetcher

import (
	"context"
	"errors"
	"fmt"

	"ecocal/internal/table"
)

var (
	// ErrInvalidHorizon indicates a start date after the end date or an
	// unparseable date.
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrInvalidIdentifier indicates an empty event identifier.
	ErrInvalidIdentifier = errors.New("invalid resource id")
)

// CalendarFetcher retrieves the calendar table for a horizon.
type CalendarFetcher interface {
	FetchCalendar(ctx context.Context, horizon Horizon) (*table.Table, error)
}

// DetailFetcher retrieves per-event detail records.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, ids []string) (DetailResult, error)
}

// TransportError reports a request that could not be sent or whose body
// could not be read.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("fxstreet api error (%d) for %s: %s", e.Code, e.URL, e.Body)
	}
	return fmt.Sprintf("fxstreet api error (%d) for %s", e.Code, e.URL)
}
