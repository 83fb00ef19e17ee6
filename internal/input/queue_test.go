package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource fans events out to subscribed channels.
type fakeSource struct {
	mu   sync.Mutex
	subs []chan<- Event
}

func (s *fakeSource) Subscribe(ch chan<- Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
	return nil
}

func (s *fakeSource) Unsubscribe(ch chan<- Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *fakeSource) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub <- ev
	}
}

func (s *fakeSource) subCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func TestGetEventsAttachesOnDemand(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	defer q.Detach()

	got := make(chan []Event, 1)
	go func() {
		events, err := q.GetEvents(context.Background())
		if err == nil {
			got <- events
		}
	}()

	require.Eventually(t, func() bool { return src.subCount() == 1 },
		time.Second, time.Millisecond, "first read subscribes")
	src.emit(Event{Time: time.Now(), Code: 7, Pressed: true})

	select {
	case events := <-got:
		require.Len(t, events, 1)
		assert.Equal(t, uint16(7), events[0].Code)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestReattachAfterDetach(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	require.NoError(t, q.Attach())
	q.Detach()
	require.Equal(t, 0, src.subCount())

	got := make(chan []Event, 1)
	go func() {
		events, err := q.GetEvents(context.Background())
		if err == nil {
			got <- events
		}
	}()

	require.Eventually(t, func() bool { return src.subCount() == 1 },
		time.Second, time.Millisecond, "read after detach resubscribes")
	src.emit(Event{Time: time.Now(), Code: 3, Pressed: true})

	select {
	case events := <-got:
		require.Len(t, events, 1)
		assert.Equal(t, uint16(3), events[0].Code)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered after reattach")
	}
	q.Detach()
}

func TestGetEventsDeliversSingleEvent(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	require.NoError(t, q.Attach())
	defer q.Detach()

	src.emit(Event{Time: time.Now(), Code: 30, Pressed: true})

	events, err := q.GetEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint16(30), events[0].Code)
}

func TestGetEventsBlocksUntilEvent(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	require.NoError(t, q.Attach())
	defer q.Detach()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := q.GetEvents(ctx)
	assert.Error(t, err, "should unblock with context error, not hang")
}

func TestExpiryWindowAccumulates(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	q.SetExpireWindow(time.Minute)
	require.NoError(t, q.Attach())
	defer q.Detach()

	now := time.Now()
	src.emit(Event{Time: now, Code: 1, Pressed: true})
	events, err := q.GetEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	src.emit(Event{Time: now, Code: 2, Pressed: true})
	events, err = q.GetEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2, "unexpired events accumulate")
}

func TestPollDoesNotBlock(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	require.NoError(t, q.Attach())
	defer q.Detach()

	assert.Nil(t, q.Poll(), "empty queue polls as nil")

	src.emit(Event{Time: time.Now(), Code: 5, Pressed: true})
	events := q.Poll()
	require.Len(t, events, 1)
	assert.Equal(t, uint16(5), events[0].Code)

	assert.Nil(t, q.Poll(), "without a window, events deliver once")
}

func TestPollRetainsWithinWindow(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	q.SetExpireWindow(time.Minute)
	require.NoError(t, q.Attach())
	defer q.Detach()

	src.emit(Event{Time: time.Now(), Code: 1, Pressed: true})
	require.Len(t, q.Poll(), 1)
	assert.Len(t, q.Poll(), 1, "unexpired events remain readable")
}

func TestExpiredEventsDropped(t *testing.T) {
	src := &fakeSource{}
	q := NewQueue(src)
	q.SetExpireWindow(10 * time.Millisecond)
	require.NoError(t, q.Attach())
	defer q.Detach()

	src.emit(Event{Time: time.Now().Add(-time.Second), Code: 1, Pressed: true})
	src.emit(Event{Time: time.Now(), Code: 2, Pressed: true})

	events, err := q.GetEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint16(2), events[0].Code)
}
