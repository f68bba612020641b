package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPublishFanOut(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe(4)
	s2 := b.Subscribe(4)

	b.Publish(Event{Type: EventRouteSuccess, Provider: "deepseek", DurationMs: 120})

	for i, s := range []*Subscriber{s1, s2} {
		select {
		case e := <-s.C:
			if e.Type != EventRouteSuccess || e.Provider != "deepseek" {
				t.Errorf("subscriber %d: unexpected event %+v", i, e)
			}
			if e.Timestamp.IsZero() {
				t.Errorf("subscriber %d: timestamp not stamped", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event received", i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	s := b.Subscribe(4)
	b.Unsubscribe(s)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after unsubscribe")
	}

	b.Publish(Event{Type: EventRouteError})
	if len(s.C) != 0 {
		t.Error("event delivered after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("subscriber count %d after unsubscribe", b.SubscriberCount())
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	s := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: EventRouteSuccess})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
	if len(s.C) != 1 {
		t.Errorf("expected 1 buffered event, got %d", len(s.C))
	}
}

func TestEventJSON(t *testing.T) {
	e := Event{
		Type:           EventRouteFallback,
		Provider:       "fallback",
		FallbackReason: "deepseek_failed",
	}
	var decoded map[string]any
	if err := json.Unmarshal(e.JSON(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["type"] != "route_fallback" || decoded["fallback_reason"] != "deepseek_failed" {
		t.Errorf("unexpected JSON: %v", decoded)
	}
}
