package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsAndDelivers(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()

	b.Publish(EventTaskCreated, Metadata{"task_id": "task_1"})

	select {
	case ev := <-ch:
		assert.Equal(t, EventTaskCreated, ev.Type)
		assert.Equal(t, "task_1", ev.Metadata["task_id"])
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	recorded := b.Since(time.Time{})
	require.Len(t, recorded, 1)
	assert.Equal(t, 1, recorded[0].ID)
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBus()
	_ = b.Subscribe() // never drained

	for i := 0; i < 200; i++ {
		b.Publish(EventCompostChanged, Metadata{"delta": 5})
	}
	assert.Len(t, b.Since(time.Time{}), 200)
}

func TestSinceFiltersByType(t *testing.T) {
	b := NewBus()
	b.Publish(EventTaskCreated, nil)
	b.Publish(EventTaskCompleted, nil)
	b.Publish(EventTaskCompleted, nil)

	got := b.Since(time.Time{}, EventTaskCompleted)
	assert.Len(t, got, 2)
}

func TestCalculateStats(t *testing.T) {
	now := time.Now()
	evs := []Event{
		{Type: EventTaskCompleted, Timestamp: now},
		{Type: EventSessionRecorded, Timestamp: now},
		{Type: EventCompostChanged, Timestamp: now, Metadata: Metadata{"delta": 15}},
		{Type: EventCompostChanged, Timestamp: now, Metadata: Metadata{"delta": -15}},
		{Type: EventSyncStatus, Timestamp: now, Metadata: Metadata{"status": "failed"}},
	}

	stats := CalculateStats(evs, now.Add(-time.Minute))
	assert.Equal(t, 1, stats.TaskCompletions)
	assert.Equal(t, 1, stats.SessionsLogged)
	assert.Equal(t, 15, stats.CompostEarned)
	assert.Equal(t, 1, stats.SyncFailures)
}
