package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNextSlotAligned(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, AlignToBucket: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Date(2023, 10, 8, 10, 17, 3, 0, time.UTC)
	want := time.Date(2023, 10, 8, 11, 0, 0, 0, time.UTC)
	if got := s.nextSlot(now); !got.Equal(want) {
		t.Fatalf("nextSlot = %s, want %s", got, want)
	}

	onBoundary := time.Date(2023, 10, 8, 11, 0, 0, 0, time.UTC)
	if got := s.nextSlot(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("boundary nextSlot = %s", got)
	}
}

func TestNextSlotUnaligned(t *testing.T) {
	s, err := New(Options{Interval: 90 * time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Date(2023, 10, 8, 10, 17, 3, 0, time.UTC)
	if got := s.nextSlot(now); !got.Equal(now.Add(90 * time.Second)) {
		t.Fatalf("nextSlot = %s", got)
	}
	if got := s.slotStart(now); !got.Equal(now) {
		t.Fatalf("slotStart = %s", got)
	}
}

func TestRunImmediateAndRepeat(t *testing.T) {
	s, err := New(Options{Interval: 20 * time.Millisecond, Immediate: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, slot time.Time) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return errors.New("refresh errors do not stop the loop")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}
}

func TestRunCancelledDuringStartupDelay(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, StartupDelay: time.Hour, Immediate: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = s.Run(ctx, func(context.Context, time.Time) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if called {
		t.Fatal("refresh should not run after cancellation")
	}
}
