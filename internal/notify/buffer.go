package notify

import (
	"sync"
	"time"

	"prediction-pool/internal/pool"
)

// Buffer keeps the most recent envelopes for replay and pushes new ones to subscribers.
// Slow subscribers miss events rather than block the publisher.
type Buffer struct {
	mu       sync.Mutex
	max      int
	events   []Envelope
	watchers map[chan Envelope]struct{}
	closed   bool
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 500
	}
	return &Buffer{
		max:      max,
		watchers: map[chan Envelope]struct{}{},
	}
}

// Publish wraps ev in an envelope and appends it. The id is minted under the buffer lock,
// so buffer order and id order agree even with concurrent publishers.
func (b *Buffer) Publish(ev pool.Event, now time.Time) Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	env := NewEnvelope(ev, now)
	b.appendLocked(env)
	return env
}

func (b *Buffer) Append(env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(env)
}

func (b *Buffer) appendLocked(env Envelope) {
	if b.closed {
		return
	}
	b.events = append(b.events, env)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- env:
		default:
			metricStreamDropped.Inc()
		}
	}
}

// ReplayAfter returns buffered envelopes newer than lastEventID. An empty or unknown id
// replays the whole buffer.
func (b *Buffer) ReplayAfter(lastEventID string) []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	if lastEventID == "" || len(lastEventID) != len(b.events[0].EventID) {
		out := make([]Envelope, len(b.events))
		copy(out, b.events)
		return out
	}
	out := make([]Envelope, 0, len(b.events))
	for _, env := range b.events {
		if env.EventID > lastEventID {
			out = append(out, env)
		}
	}
	return out
}

func (b *Buffer) Subscribe() chan Envelope {
	ch := make(chan Envelope, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	metricSubscribers.Inc()
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
		metricSubscribers.Dec()
	}
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
		metricSubscribers.Dec()
	}
}
