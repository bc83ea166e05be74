package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL   = "https://calendar-api.fxstreet.com/en/api/v1/eventDates"
	defaultReferer   = "https://www.fxstreet.com/"
	defaultUserAgent = "EcoCal script"

	acceptCSV  = "text/csv"
	acceptJSON = "application/json"
)

// ClientOptions parameterise the FXStreet transport.
type ClientOptions struct {
	BaseURL   string
	Referer   string
	UserAgent string
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// Client issues GET requests to the provider with its fixed header set.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs the transport client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(opts.Referer) == "" {
		opts.Referer = defaultReferer
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "fxstreet_client").Logger(),
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: baseURL,
	}
}

// BaseURL returns the event dates endpoint without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches url and returns the status code and body. Any status is
// returned as-is; only send or read failures are errors.
func (c *Client) Get(ctx context.Context, url, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", accept)
	req.Header.Set("Referer", c.opts.Referer)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{URL: url, Err: err}
	}

	c.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("provider response")
	return resp.StatusCode, body, nil
}
