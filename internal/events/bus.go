// Package events is an in-memory pub/sub bus for routing events, consumed by
// the admin SSE stream.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// EventType identifies the kind of event.
type EventType string

const (
	EventRouteSuccess  EventType = "route_success"
	EventRouteFallback EventType = "route_fallback"
	EventRouteError    EventType = "route_error"
	EventSplitUpdated  EventType = "split_updated"
)

// Event is a single event published on the bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Routing fields, populated for route events.
	Provider       string  `json:"provider,omitempty"`
	Model          string  `json:"model,omitempty"`
	DurationMs     int64   `json:"duration_ms,omitempty"`
	CostUSD        float64 `json:"cost_usd,omitempty"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`

	// Split fields, populated for split_updated events.
	DeepSeekPercent int `json:"deepseek_percentage,omitempty"`
	OpenAIPercent   int `json:"openai_percentage,omitempty"`
}

// JSON returns the event serialized for the SSE stream.
func (e *Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Subscriber receives events on C until unsubscribed.
type Subscriber struct {
	C    chan Event
	done chan struct{}
}

// Bus fans events out to all current subscribers. Publishing never blocks; a
// subscriber that cannot keep up loses events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber with a buffered channel.
func (b *Bus) Subscribe(bufSize int) *Subscriber {
	if bufSize <= 0 {
		bufSize = 64
	}
	s := &Subscriber{
		C:    make(chan Event, bufSize),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subscribers[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber. Its channel is not closed so a concurrent
// Publish cannot panic; readers should select on Done.
func (b *Bus) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, s)
	b.mu.Unlock()
	close(s.done)
}

// Done is closed when the subscriber is removed from the bus.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Publish sends an event to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subscribers {
		select {
		case s.C <- e:
		default:
			// Slow subscriber, drop.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
