package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskQuestAPI/internal/achievement"
	"taskQuestAPI/internal/stats"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventStatsChanged, func(e Event) {
		received <- e
	})
	require.Equal(t, 1, bus.HandlerCount(EventStatsChanged))

	agg := stats.Default()
	agg.TotalPoints = 42
	bus.PublishStatsChanged(&agg)

	select {
	case e := <-received:
		require.NotNil(t, e.Aggregate)
		assert.Equal(t, 42, e.Aggregate.TotalPoints)
		assert.False(t, e.OccurredAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublish_OnlyMatchingTypeDelivered(t *testing.T) {
	bus := NewBus()
	statsEvents := make(chan Event, 1)

	bus.Subscribe(EventStatsChanged, func(e Event) {
		statsEvents <- e
	})

	badge := achievement.Catalog()[0]
	bus.PublishBadgeUnlocked(badge)

	select {
	case <-statsEvents:
		t.Fatal("stats handler received a badge event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublish_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 2; i++ {
		bus.Subscribe(EventBadgeUnlocked, func(Event) {
			wg.Done()
		})
	}

	bus.PublishBadgeUnlocked(achievement.Catalog()[0])

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all subscribers were invoked")
	}
}

func TestPublish_PanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventBadgeUnlocked, func(Event) {
		panic("boom")
	})
	bus.Subscribe(EventBadgeUnlocked, func(e Event) {
		received <- e
	})

	bus.PublishBadgeUnlocked(achievement.Catalog()[1])

	select {
	case e := <-received:
		require.NotNil(t, e.Badge)
		assert.Equal(t, achievement.BadgeStreak3, e.Badge.ID)
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked")
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: EventStatsChanged})
	})
}
