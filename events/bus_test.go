package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventGigFinished)

	bus.Publish(NewEvent(EventGigFinished, SourceGig, map[string]any{"gig": "gig_1"}))
	bus.Publish(NewEvent(EventAgentCast, SourceAgent, map[string]any{"agent": "agent_1"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventGigFinished {
		t.Errorf("expected gig.finished, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventGigPosted, SourceGig, nil))
	bus.Publish(NewEvent(EventAgentBuried, SourceAgent, nil))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsubscribe := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsubscribe()

	bus.Publish(NewEvent(EventGigPosted, SourceGig, nil))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("unsubscribed handler received %d events", count)
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, cancel := bus.SubscribeChan(8, EventCurtainCall)
	defer cancel()

	bus.Publish(NewEvent(EventCurtainCall, SourceSchedule, map[string]any{"id": "call_1"}))

	select {
	case e := <-ch:
		if e.Type != EventCurtainCall {
			t.Errorf("expected curtain.call, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHistoryKeepsRecentEvents(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	for i := 0; i < 6; i++ {
		bus.Publish(NewEvent(EventGigPosted, SourceGig, map[string]any{"i": i}))
	}
	time.Sleep(50 * time.Millisecond)

	history := bus.History(10)
	if len(history) != 4 {
		t.Fatalf("expected ring of 4, got %d", len(history))
	}
	if history[len(history)-1].Payload["i"] != 5 {
		t.Errorf("unexpected newest event: %+v", history[len(history)-1].Payload)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Close()
	bus.Publish(NewEvent(EventGigPosted, SourceGig, nil)) // dropped, not a panic
}
