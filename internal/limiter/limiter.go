package limiter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Hosts enforces a minimum interval between consecutive request starts to
// each host. Hosts are independent: a caller waiting for one host never
// delays callers targeting another.
type Hosts struct {
	mu    sync.Mutex
	slots map[string]time.Time
	clock Timer
}

// NewHosts creates a per-host limiter with a custom clock.
// A nil clock falls back to real time.
func NewHosts(clock Timer) *Hosts {
	if clock == nil {
		clock = Clock{}
	}

	return &Hosts{
		slots: make(map[string]time.Time),
		clock: clock,
	}
}

// Wait blocks until the host's next allowed request time, then reserves the
// slot after it. The reservation happens before sleeping, so concurrent
// callers for the same host are serialized and spaced by interval while the
// map lock is held only briefly.
func (h *Hosts) Wait(ctx context.Context, host string, interval time.Duration) error {
	if h == nil || host == "" {
		return nil
	}

	if interval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	host = strings.ToLower(host)

	h.mu.Lock()
	now := h.clock.Now()

	var wait time.Duration
	slot, seen := h.slots[host]
	if !seen || !now.Before(slot) {
		h.slots[host] = now.Add(interval)
		h.mu.Unlock()

		return nil
	}

	wait = slot.Sub(now)
	h.slots[host] = slot.Add(interval)
	h.mu.Unlock()

	return h.clock.Sleep(ctx, wait)
}
