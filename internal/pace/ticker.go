// Package pace provides frame-rate pacing for render loops.
package pace

import (
	"context"
	"sync"
	"time"
)

// Ticker throttles a loop to a fixed interval. Call Mark at the top of an
// iteration and Wait at the bottom; Wait sleeps only the budget remaining
// after the work done since Mark, so a slow iteration never stacks delays.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	mark     time.Time
}

// NewTicker returns a Ticker for the given interval. Intervals <= 0 are
// treated as "no pacing" and Wait returns immediately.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// ForFPS returns a Ticker paced to the given frames per second.
func ForFPS(fps float64) *Ticker {
	return NewTicker(IntervalFor(fps))
}

// IntervalFor converts frames per second to a tick interval.
func IntervalFor(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// SetInterval changes the pacing interval, taking effect on the next Wait.
func (t *Ticker) SetInterval(interval time.Duration) {
	t.mu.Lock()
	t.interval = interval
	t.mu.Unlock()
}

// Interval returns the current pacing interval.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Mark records the start of an iteration.
func (t *Ticker) Mark() {
	t.mu.Lock()
	t.mark = time.Now()
	t.mu.Unlock()
}

// Wait sleeps the remainder of the interval budget measured from the last
// Mark. Returns early with the context error if ctx is cancelled. Never
// busy-waits; if the budget is already spent it yields immediately.
func (t *Ticker) Wait(ctx context.Context) error {
	t.mu.Lock()
	interval := t.interval
	mark := t.mark
	t.mu.Unlock()

	if interval <= 0 {
		return ctx.Err()
	}

	remaining := interval - time.Since(mark)
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
