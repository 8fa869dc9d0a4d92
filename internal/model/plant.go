package model

import "time"

type PlantID string

// Position is where a plant sits in the garden view. Assigned pseudorandomly
// at creation and otherwise opaque to the core.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Species struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Rarity             string  `json:"rarity"`
	GrowthRate         float64 `json:"growthRate"`
	CompostRequirement int     `json:"compostRequirement"`
	Description        string  `json:"description,omitempty"`
}

// Plant is the reward artifact grown from a completed task. Exactly one plant
// exists per task while that task's status is "completed".
type Plant struct {
	ID      PlantID   `json:"id"`
	OwnerID string    `json:"userId"`
	TaskID  TaskID    `json:"taskId"`
	Type    PlantType `json:"type"`
	Species Species   `json:"species"`

	Growth int `json:"growth"` // 0-100, never decreases
	Health int `json:"health"` // 0-100

	Position  Position  `json:"position"`
	PlantedAt time.Time `json:"plantedAt"`

	LastWatered    *time.Time `json:"lastWatered,omitempty"`
	LastFertilized *time.Time `json:"lastFertilized,omitempty"`

	IsRare        bool     `json:"isRare"`
	SpecialTraits []string `json:"specialTraits"`
}

// Grow raises growth and health by the given deltas, capped at 100.
// Growth never goes down.
func (p *Plant) Grow(growth, health int) {
	p.Growth = min(100, p.Growth+growth)
	p.Health = min(100, p.Health+health)
}
