package events

import "time"

type EventType string

const (
	EventTaskCreated     EventType = "task_created"
	EventTaskUpdated     EventType = "task_updated"
	EventTaskCompleted   EventType = "task_completed"
	EventTaskUncompleted EventType = "task_uncompleted"
	EventTaskArchived    EventType = "task_archived"
	EventTaskDeleted     EventType = "task_deleted"
	EventPlantCreated    EventType = "plant_created"
	EventPlantRemoved    EventType = "plant_removed"
	EventPlantGrown      EventType = "plant_grown"
	EventCompostChanged  EventType = "compost_changed"
	EventSessionRecorded EventType = "session_recorded"
	EventProfileVerified EventType = "profile_verified"
	EventSyncStatus      EventType = "sync_status_changed"
	EventHydrated        EventType = "hydrated"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}

type Metadata map[string]any
