package events

import (
	"sync"
	"time"
)

// Bus records change events and fans them out to subscribers. Publishing
// never blocks a mutation: a subscriber that stops draining its channel
// misses events instead of stalling the domain layer.
type Bus struct {
	mu     sync.RWMutex
	events []Event
	nextID int
	subs   []chan Event
}

func NewBus() *Bus {
	return &Bus{
		events: make([]Event, 0),
		nextID: 1,
	}
}

// Subscribe returns a buffered channel of future events. Close() closes it.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 64)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(eventType EventType, metadata Metadata) {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := Event{
		ID:        b.nextID,
		Type:      eventType,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
	b.nextID++
	b.events = append(b.events, event)

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Since returns recorded events at or after the given instant, optionally
// filtered by type.
func (b *Bus) Since(since time.Time, eventTypes ...EventType) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typeFilter := make(map[EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		typeFilter[t] = true
	}

	result := make([]Event, 0)
	for _, event := range b.events {
		if event.Timestamp.Before(since) {
			continue
		}
		if len(eventTypes) > 0 && !typeFilter[event.Type] {
			continue
		}
		result = append(result, event)
	}
	return result
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
