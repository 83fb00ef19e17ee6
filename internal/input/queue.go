// Package input adapts a device's key-event source for renderers that
// react to typing.
package input

import (
	"context"
	"sync"
	"time"
)

// Event is one key transition reported by the device.
type Event struct {
	Time    time.Time
	Code    uint16
	Pressed bool
}

// Source is the key-capture collaborator. Subscribe registers a channel
// for delivery of future events; Unsubscribe stops delivery.
type Source interface {
	Subscribe(ch chan<- Event) error
	Unsubscribe(ch chan<- Event)
}

// Queue buffers key events for a single renderer. With an expiry window
// configured, events remain readable until they age out, letting the
// renderer act on groups of keystrokes over time; without one, each event
// is delivered once. Reads attach on demand, so a detached queue (after a
// stop, say) resubscribes transparently on the next read.
type Queue struct {
	src Source

	mu       sync.Mutex
	expire   time.Duration
	ch       chan Event
	attached bool
	buf      []Event
}

// NewQueue returns a detached Queue reading from src.
func NewQueue(src Source) *Queue {
	return &Queue{src: src}
}

// SetExpireWindow sets how long dequeued events stay available. Zero
// disables retention.
func (q *Queue) SetExpireWindow(d time.Duration) {
	q.mu.Lock()
	q.expire = d
	q.mu.Unlock()
}

// ExpireWindow returns the configured retention window.
func (q *Queue) ExpireWindow() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.expire
}

// Attach registers interest in events. Safe to call repeatedly.
func (q *Queue) Attach() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.attached {
		return nil
	}
	q.ch = make(chan Event, 64)
	if err := q.src.Subscribe(q.ch); err != nil {
		q.ch = nil
		return err
	}
	q.attached = true
	return nil
}

// Detach deregisters and drops any buffered events.
func (q *Queue) Detach() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.attached {
		return
	}
	q.src.Unsubscribe(q.ch)
	q.attached = false
	q.ch = nil
	q.buf = nil
}

// Poll returns any events already delivered without blocking, attaching
// first if needed. With an expiry window configured, unexpired events
// from earlier calls are included; without one, pending events are
// returned once. Returns nil when nothing is pending or the subscription
// failed.
func (q *Queue) Poll() []Event {
	if err := q.Attach(); err != nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.attached {
		return nil
	}
	for {
		select {
		case ev := <-q.ch:
			q.buf = append(q.buf, ev)
			continue
		default:
		}
		break
	}
	if q.expire > 0 {
		cutoff := time.Now().Add(-q.expire)
		kept := q.buf[:0]
		for _, e := range q.buf {
			if e.Time.After(cutoff) {
				kept = append(kept, e)
			}
		}
		q.buf = kept
	}
	if len(q.buf) == 0 {
		return nil
	}
	out := make([]Event, len(q.buf))
	copy(out, q.buf)
	if q.expire <= 0 {
		q.buf = nil
	}
	return out
}

// GetEvents blocks until at least one event arrives, then returns it,
// attaching first if needed. If an expiry window is configured, all
// unexpired events accumulated within the window are returned together.
// Returns the context error if ctx is cancelled while waiting, or the
// subscription error if attaching failed.
func (q *Queue) GetEvents(ctx context.Context) ([]Event, error) {
	if err := q.Attach(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	ch := q.ch
	q.mu.Unlock()
	if ch == nil {
		// detached concurrently; nothing to wait on
		return nil, ctx.Err()
	}

	var ev Event
	select {
	case ev = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.expire <= 0 {
		return []Event{ev}, nil
	}

	q.buf = append(q.buf, ev)
	// pick up anything else already delivered
	for {
		select {
		case more := <-ch:
			q.buf = append(q.buf, more)
			continue
		default:
		}
		break
	}

	cutoff := time.Now().Add(-q.expire)
	kept := q.buf[:0]
	for _, e := range q.buf {
		if e.Time.After(cutoff) {
			kept = append(kept, e)
		}
	}
	q.buf = kept

	out := make([]Event, len(q.buf))
	copy(out, q.buf)
	return out, nil
}
