package limiter

import (
	"context"
	"testing"
	"time"
)

func TestClockSleepZeroDuration(t *testing.T) {
	t.Parallel()

	clock := NewClock()
	if err := clock.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClockSleepCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := NewClock()
	if err := clock.Sleep(ctx, time.Minute); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestClockNow(t *testing.T) {
	t.Parallel()

	before := time.Now()
	got := NewClock().Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Fatalf("Now() outside expected range: %v", got)
	}
}
