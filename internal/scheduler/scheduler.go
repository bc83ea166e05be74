// Package scheduler runs a refresh job on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidInterval is returned when the refresh interval is not positive.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// RefreshFunc is invoked once per slot. The slot is the nominal start time
// of the run, truncated to the interval when alignment is enabled.
type RefreshFunc func(ctx context.Context, slot time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval      time.Duration
	AlignToBucket bool
	StartupDelay  time.Duration
	// Immediate runs one refresh right after the startup delay instead of
	// waiting for the first slot.
	Immediate bool
}

// Scheduler drives periodic calendar refreshes.
type Scheduler struct {
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Scheduler{
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run blocks, invoking refresh once per slot until ctx is cancelled. A
// failing refresh is logged and the loop continues with the next slot.
func (s *Scheduler) Run(ctx context.Context, refresh RefreshFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.Immediate {
		s.execute(ctx, refresh, s.slotStart(s.now()))
	}

	next := s.nextSlot(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			skipped := next
			next = s.nextSlot(s.now())
			s.logger.Warn().Time("missed_slot", skipped).Time("next_slot", next).Msg("refresh overran its slot")
			delay = next.Sub(s.now())
		}

		s.logger.Debug().Time("next_slot", next).Dur("in", delay).Msg("waiting for next slot")
		if err := sleep(ctx, delay); err != nil {
			return err
		}

		s.execute(ctx, refresh, s.slotStart(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, refresh RefreshFunc, slot time.Time) {
	s.logger.Info().Time("slot", slot).Msg("running scheduled refresh")
	if err := refresh(ctx, slot); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Time("slot", slot).Msg("refresh failed")
	}
}

func (s *Scheduler) nextSlot(now time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return now.Add(s.opts.Interval)
	}
	slot := now.Truncate(s.opts.Interval)
	if !slot.After(now) {
		slot = slot.Add(s.opts.Interval)
	}
	return slot
}

func (s *Scheduler) slotStart(t time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
