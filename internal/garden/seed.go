package garden

import (
	"time"

	"github.com/alsoknownaszac/tendly/internal/model"
)

// Starting balance for a brand-new garden.
const StartingCompost = 128

// SampleState seeds a first-run garden: three sample tasks, the plant for
// the already-completed one, and a default profile. It is used whenever
// neither the remote store nor the local cache has anything for an account.
func SampleState(owner string, now time.Time) State {
	yesterday := now.Add(-24 * time.Hour)
	twoHoursAgo := now.Add(-2 * time.Hour)
	inTwoHours := now.Add(2 * time.Hour)

	tasks := []model.Task{
		{
			ID:                    "task_sample_1",
			OwnerID:               owner,
			Title:                 "Morning workout",
			Description:           "Complete 30-minute cardio session",
			Priority:              model.PriorityHigh,
			Category:              model.CategoryHealth,
			Status:                model.StatusPending,
			PlantType:             model.PlantTree,
			CompostReward:         15,
			EstimatedFocusMinutes: 30,
			CreatedAt:             now,
			UpdatedAt:             now,
			DueDate:               &inTwoHours,
			Tags:                  []string{"fitness", "morning"},
		},
		{
			ID:                    "task_sample_2",
			OwnerID:               owner,
			Title:                 "Review project proposal",
			Description:           "Read through and provide feedback",
			Priority:              model.PriorityMedium,
			Category:              model.CategoryWork,
			Status:                model.StatusCompleted,
			PlantType:             model.PlantFlower,
			CompostReward:         10,
			EstimatedFocusMinutes: 45,
			ActualFocusMinutes:    50,
			CreatedAt:             yesterday,
			UpdatedAt:             twoHoursAgo,
			CompletedAt:           &twoHoursAgo,
			Tags:                  []string{"work", "review"},
		},
		{
			ID:                    "task_sample_3",
			OwnerID:               owner,
			Title:                 "Call mom",
			Description:           "Weekly check-in call",
			Priority:              model.PriorityLow,
			Category:              model.CategoryPersonal,
			Status:                model.StatusPending,
			PlantType:             model.PlantSprout,
			CompostReward:         5,
			EstimatedFocusMinutes: 15,
			CreatedAt:             now,
			UpdatedAt:             now,
			Tags:                  []string{"family", "personal"},
		},
	}

	plants := []model.Plant{
		{
			ID:      "plant_sample_1",
			OwnerID: owner,
			TaskID:  "task_sample_2",
			Type:    model.PlantFlower,
			Species: model.Species{
				ID:                 "rose",
				Name:               "Garden Rose",
				Rarity:             "common",
				GrowthRate:         1.0,
				CompostRequirement: 10,
				Description:        "A beautiful garden rose that blooms with dedication",
			},
			Growth:        90,
			Health:        95,
			Position:      model.Position{X: 200, Y: 300},
			PlantedAt:     twoHoursAgo,
			SpecialTraits: []string{},
		},
	}

	profile := &model.Profile{
		ID:                owner,
		Name:              "Garden Keeper",
		Level:             1,
		UnlockedSeedTypes: []string{"basic"},
		JoinedAt:          now,
		LastActiveAt:      now,
		Preferences: model.Preferences{
			DefaultFocusMinutes:  25,
			BreakMinutes:         5,
			SoundEnabled:         true,
			NotificationsEnabled: true,
			Theme:                "auto",
			GardenWeather:        "sunny",
		},
	}

	return State{
		Tasks:        tasks,
		Plants:       plants,
		Compost:      StartingCompost,
		Level:        profile.Level,
		Profile:      profile,
		Sessions:     []model.FocusSession{},
		Achievements: []model.Achievement{},
	}
}
