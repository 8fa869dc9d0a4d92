package model

import "time"

type Preferences struct {
	DefaultFocusMinutes  int    `json:"defaultFocusTime"`
	BreakMinutes         int    `json:"breakTime"`
	SoundEnabled         bool   `json:"soundEnabled"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	Theme                string `json:"theme"`
	GardenWeather        string `json:"gardenWeather"`
}

// Profile is the per-account progression record. Level and the unlocked seed
// set only ever grow.
type Profile struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Level              int         `json:"level"`
	TotalCompost       int         `json:"totalCompost"`
	CurrentStreak      int         `json:"currentStreak"`
	LongestStreak      int         `json:"longestStreak"`
	TotalFocusHours    int         `json:"totalFocusHours"`
	TotalTasksComplete int         `json:"totalTasksCompleted"`
	UnlockedSeedTypes  []string    `json:"unlockedSeedTypes"`
	VerifiedFollowers  *int        `json:"twitterFollowersVerified,omitempty"`
	Preferences        Preferences `json:"preferences"`

	JoinedAt     time.Time  `json:"joinedAt"`
	LastActiveAt time.Time  `json:"lastActiveAt"`
	VerifiedAt   *time.Time `json:"twitterVerifiedAt,omitempty"`
}

// HasSeed reports whether the profile has unlocked the given seed type.
func (p Profile) HasSeed(seed string) bool {
	for _, s := range p.UnlockedSeedTypes {
		if s == seed {
			return true
		}
	}
	return false
}

// UnlockSeeds unions the given seed types into the unlocked set, preserving
// insertion order. The set never shrinks.
func (p *Profile) UnlockSeeds(seeds []string) {
	for _, s := range seeds {
		if !p.HasSeed(s) {
			p.UnlockedSeedTypes = append(p.UnlockedSeedTypes, s)
		}
	}
}

type FocusSession struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"userId"`
	TaskID          *TaskID   `json:"taskId,omitempty"`
	DurationSeconds int       `json:"duration"`
	PlannedSeconds  int       `json:"plannedDuration"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	Distractions    int       `json:"distractionsCount"`
	FocusScore      int       `json:"focusScore"`
	CompostEarned   int       `json:"compostEarned"`
	GrowthContrib   int       `json:"plantGrowthContributed"`
	SessionType     string    `json:"sessionType"`
	Mood            string    `json:"mood,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	RemoteID        string    `json:"remoteDocumentId,omitempty"`
}

type Achievement struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"userId"`
	Key        string    `json:"achievementId"`
	UnlockedAt time.Time `json:"unlockedAt"`
	Progress   int       `json:"progress"`
	Completed  bool      `json:"isCompleted"`
}
