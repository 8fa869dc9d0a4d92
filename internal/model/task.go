package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type TaskID string

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Category string

const (
	CategoryWork     Category = "work"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryPersonal Category = "personal"
	CategoryOther    Category = "other"
)

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusArchived  TaskStatus = "archived"
)

type PlantType string

const (
	PlantSprout PlantType = "sprout"
	PlantFlower PlantType = "flower"
	PlantTree   PlantType = "tree"
)

type Task struct {
	ID          TaskID     `json:"id"`
	OwnerID     string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	Status      TaskStatus `json:"status"`

	// Derived from Priority; recomputed whenever Priority changes.
	PlantType     PlantType `json:"plantType"`
	CompostReward int       `json:"compostReward"`

	EstimatedFocusMinutes int      `json:"estimatedFocusTime,omitempty"`
	ActualFocusMinutes    int      `json:"actualFocusTime,omitempty"`
	Tags                  []string `json:"tags"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`

	// RemoteID is set once the task has been mirrored to the document store.
	RemoteID string `json:"remoteDocumentId,omitempty"`
}

// PlantTypeFor maps a priority to the plant a completed task grows.
func PlantTypeFor(p Priority) PlantType {
	switch p {
	case PriorityHigh:
		return PlantTree
	case PriorityMedium:
		return PlantFlower
	default:
		return PlantSprout
	}
}

// CompostRewardFor maps a priority to the compost awarded on completion.
func CompostRewardFor(p Priority) int {
	switch p {
	case PriorityHigh:
		return 15
	case PriorityMedium:
		return 10
	default:
		return 5
	}
}

// Rederive recomputes the priority-derived fields in place.
func (t *Task) Rederive() {
	t.PlantType = PlantTypeFor(t.Priority)
	t.CompostReward = CompostRewardFor(t.Priority)
}

// Active reports whether the task shows up in active views.
// Archived tasks stay in storage but are excluded here.
func (t Task) Active() bool {
	return t.Status == StatusPending || t.Status == StatusCompleted
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidCategory(c Category) bool {
	switch c {
	case CategoryWork, CategoryHealth, CategoryLearning, CategoryPersonal, CategoryOther:
		return true
	}
	return false
}

// NewID returns a prefixed random identifier, unique within an owner's
// collection.
func NewID(prefix string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return prefix + "_" + hex.EncodeToString(b[:])
}
