package events

import "time"

type Stats struct {
	Period          string            `json:"period"`
	EventCounts     map[EventType]int `json:"event_counts"`
	TaskCompletions int               `json:"task_completions"`
	SessionsLogged  int               `json:"sessions_logged"`
	CompostEarned   int               `json:"compost_earned"`
	SyncFailures    int               `json:"sync_failures"`
}

// CalculateStats summarizes recorded events since the given instant.
func CalculateStats(evs []Event, since time.Time) Stats {
	stats := Stats{
		Period:      since.Format("2006-01-02"),
		EventCounts: make(map[EventType]int),
	}

	for _, event := range evs {
		if event.Timestamp.Before(since) {
			continue
		}
		stats.EventCounts[event.Type]++

		switch event.Type {
		case EventTaskCompleted:
			stats.TaskCompletions++
		case EventSessionRecorded:
			stats.SessionsLogged++
		case EventCompostChanged:
			if delta, ok := event.Metadata["delta"].(int); ok && delta > 0 {
				stats.CompostEarned += delta
			}
		case EventSyncStatus:
			if status, ok := event.Metadata["status"].(string); ok && status == "failed" {
				stats.SyncFailures++
			}
		}
	}
	return stats
}
