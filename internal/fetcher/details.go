package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ecocal/internal/metrics"
)

// Missing-detail policies.
const (
	OnMissingSkip = "skip"
	OnMissingFail = "fail"
)

const defaultBatchSize = 10

// DetailOptions tune the batched detail fan-out.
type DetailOptions struct {
	BatchSize      int
	MaxConcurrency int
	// DropTrailingBatch leaves the final len(ids)%BatchSize identifiers
	// unrequested.
	DropTrailingBatch bool
	OnMissing         string
}

// DetailResult is the outcome of a complete detail fetch.
type DetailResult struct {
	Records   map[string]map[string]any
	Requested int
	Skipped   []string
	Dropped   []string
}

// Details fetches per-event records in sequential batches.
type Details struct {
	client  *Client
	opts    DetailOptions
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewDetails constructs a detail fetcher on top of client.
func NewDetails(client *Client, opts DetailOptions, m *metrics.Metrics, logger zerolog.Logger) *Details {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxConcurrency <= 0 || opts.MaxConcurrency > opts.BatchSize {
		opts.MaxConcurrency = opts.BatchSize
	}
	if opts.OnMissing == "" {
		opts.OnMissing = OnMissingSkip
	}
	return &Details{
		client:  client,
		opts:    opts,
		metrics: m,
		logger:  logger.With().Str("component", "detail_fetcher").Logger(),
	}
}

// FetchDetails requests the detail record of every identifier in ids,
// batch by batch. The first transport or decode failure cancels the batch
// and the whole call returns no result. A blank identifier is treated like
// a missing record.
func (d *Details) FetchDetails(ctx context.Context, ids []string) (DetailResult, error) {
	batches, dropped := splitBatches(ids, d.opts.BatchSize, d.opts.DropTrailingBatch)
	if len(dropped) > 0 {
		d.metrics.DetailsDropped(len(dropped))
		d.logger.Warn().Int("dropped", len(dropped)).Int("batch_size", d.opts.BatchSize).
			Msg("trailing partial batch not requested")
	}

	var (
		mu      sync.Mutex
		records = make(map[string]map[string]any, len(ids))
		missing = make(map[string]struct{})
	)
	result := DetailResult{Dropped: dropped}

	for n, batch := range batches {
		if err := ctx.Err(); err != nil {
			return DetailResult{}, fmt.Errorf("fetch details: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.MaxConcurrency)
		for _, id := range batch {
			id := id
			g.Go(func() error {
				rec, ok, err := d.fetchOne(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if ok {
					records[id] = rec
				} else {
					missing[id] = struct{}{}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return DetailResult{}, fmt.Errorf("fetch details: batch %d: %w", n, err)
		}

		result.Requested += len(batch)
		for _, id := range batch {
			if _, ok := missing[id]; ok {
				result.Skipped = append(result.Skipped, id)
				delete(missing, id)
			}
		}
		d.logger.Debug().Int("batch", n).Int("size", len(batch)).Msg("detail batch completed")
	}

	if len(result.Skipped) > 0 {
		d.logger.Warn().Int("skipped", len(result.Skipped)).Msg("detail records unavailable")
	}

	result.Records = records
	return result, nil
}

func (d *Details) fetchOne(ctx context.Context, id string) (map[string]any, bool, error) {
	if strings.TrimSpace(id) == "" {
		d.metrics.DetailRequest(metrics.OutcomeMissing)
		if d.opts.OnMissing == OnMissingFail {
			return nil, false, fmt.Errorf("fetch detail %q: %w", id, ErrInvalidIdentifier)
		}
		d.logger.Debug().Str("id", id).Msg("blank identifier not requested")
		return nil, false, nil
	}

	target := d.client.BaseURL() + "/" + url.PathEscape(id)
	status, body, err := d.client.Get(ctx, target, acceptJSON)
	if err != nil {
		d.metrics.DetailRequest(metrics.OutcomeError)
		return nil, false, err
	}

	if status != http.StatusOK {
		d.metrics.DetailRequest(metrics.OutcomeMissing)
		if d.opts.OnMissing == OnMissingFail {
			return nil, false, newStatusError(target, status, body)
		}
		d.logger.Debug().Str("id", id).Int("status", status).Msg("detail not available")
		return nil, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		d.metrics.DetailRequest(metrics.OutcomeError)
		return nil, false, fmt.Errorf("decode detail %s: %w", id, err)
	}
	if rec == nil {
		rec = map[string]any{}
	}

	d.metrics.DetailRequest(metrics.OutcomeOK)
	return rec, true, nil
}

// splitBatches groups ids into consecutive batches of size. When
// dropTrailing is set the remainder is returned separately instead of
// forming a last smaller batch.
func splitBatches(ids []string, size int, dropTrailing bool) ([][]string, []string) {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			if dropTrailing {
				return batches, append([]string(nil), ids[start:]...)
			}
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches, nil
}

var _ DetailFetcher = (*Details)(nil)
