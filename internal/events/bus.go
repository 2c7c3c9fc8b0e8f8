// Package events provides the in-process channel between data mutations
// and their observers: services publish after each successful write, and
// subscribers (loggers, metrics) react without the services knowing about
// them.
package events

import (
	"log"
	"sync"
	"time"

	"taskQuestAPI/internal/achievement"
	"taskQuestAPI/internal/stats"
)

type EventType string

const (
	EventStatsChanged  EventType = "stats.changed"
	EventBadgeUnlocked EventType = "badge.unlocked"
)

// Event carries the payload for one occurrence. Aggregate is set on
// stats.changed; Badge is set on badge.unlocked.
type Event struct {
	Type       EventType
	Aggregate  *stats.Aggregate
	Badge      *achievement.Badge
	OccurredAt time.Time
}

type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the event to every subscriber asynchronously so a slow
// or panicking handler cannot block or fail the mutation that produced it.
func (b *Bus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Events: handler panic for %s: %v", event.Type, r)
				}
			}()
			h(event)
		}(handler)
	}
}

func (b *Bus) PublishStatsChanged(agg *stats.Aggregate) {
	b.Publish(Event{Type: EventStatsChanged, Aggregate: agg})
}

func (b *Bus) PublishBadgeUnlocked(badge achievement.Badge) {
	b.Publish(Event{Type: EventBadgeUnlocked, Badge: &badge})
}

// HandlerCount is exposed for tests.
func (b *Bus) HandlerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
