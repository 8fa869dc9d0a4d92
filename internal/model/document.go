package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocKind discriminates the closed set of payloads stored in the remote
// document store.
type DocKind string

const (
	DocTask          DocKind = "task"
	DocPlant         DocKind = "plant"
	DocGardenState   DocKind = "garden_snapshot"
	DocTasksSnapshot DocKind = "tasks_snapshot"
)

// Document is a record in the remote store. Data is the raw JSON payload;
// every payload carries a "type" discriminator.
type Document struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Kind peeks at the payload discriminator without decoding the full envelope.
func (d Document) Kind() (DocKind, error) {
	var head struct {
		Type DocKind `json:"type"`
	}
	if err := json.Unmarshal(d.Data, &head); err != nil {
		return "", fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return head.Type, nil
}

// TaskDoc mirrors a single task remotely.
type TaskDoc struct {
	Type DocKind `json:"type"`
	Task Task    `json:"task"`
}

// PlantDoc mirrors a single plant remotely.
type PlantDoc struct {
	Type  DocKind `json:"type"`
	Plant Plant   `json:"plant"`
}

// TasksSnapshot is a full-collection snapshot of the tasks aggregate.
// Timestamp is epoch milliseconds at write time and drives the
// last-write-wins merge on load.
type TasksSnapshot struct {
	Type      DocKind `json:"type"`
	Timestamp int64   `json:"timestamp"`
	Tasks     []Task  `json:"tasks"`
}

// GardenSnapshot is a full snapshot of everything that is not a task:
// plants, compost, profile, sessions, achievements.
type GardenSnapshot struct {
	Type         DocKind        `json:"type"`
	Timestamp    int64          `json:"timestamp"`
	Plants       []Plant        `json:"plants"`
	Compost      int            `json:"compost"`
	Level        int            `json:"level"`
	Profile      *Profile       `json:"profile,omitempty"`
	Sessions     []FocusSession `json:"focusSessions,omitempty"`
	Achievements []Achievement  `json:"achievements,omitempty"`
}

// EpochMillis converts an instant to the snapshot timestamp encoding.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
