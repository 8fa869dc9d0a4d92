package garden

import (
	"github.com/alsoknownaszac/tendly/internal/model"
)

// State is the full in-memory view of one account's garden: every aggregate
// the reconciliation layer loads and persists.
type State struct {
	Tasks        []model.Task         `json:"tasks"`
	Plants       []model.Plant        `json:"plants"`
	Compost      int                  `json:"compost"`
	Level        int                  `json:"level"`
	Profile      *model.Profile       `json:"profile,omitempty"`
	Sessions     []model.FocusSession `json:"focusSessions"`
	Achievements []model.Achievement  `json:"achievements"`
}

// Clone deep-copies the state so snapshots handed to the async mirror are
// not racily shared with future mutations.
func (s State) Clone() State {
	out := State{
		Compost: s.Compost,
		Level:   s.Level,
	}
	out.Tasks = append([]model.Task(nil), s.Tasks...)
	out.Plants = append([]model.Plant(nil), s.Plants...)
	out.Sessions = append([]model.FocusSession(nil), s.Sessions...)
	out.Achievements = append([]model.Achievement(nil), s.Achievements...)
	if s.Profile != nil {
		p := *s.Profile
		p.UnlockedSeedTypes = append([]string(nil), s.Profile.UnlockedSeedTypes...)
		out.Profile = &p
	}
	for i := range out.Tasks {
		out.Tasks[i].Tags = append([]string(nil), s.Tasks[i].Tags...)
	}
	for i := range out.Plants {
		out.Plants[i].SpecialTraits = append([]string(nil), s.Plants[i].SpecialTraits...)
	}
	return out
}

// TasksSnapshot packages the tasks aggregate for the remote mirror.
func (s State) TasksSnapshot(ts int64) model.TasksSnapshot {
	return model.TasksSnapshot{
		Type:      model.DocTasksSnapshot,
		Timestamp: ts,
		Tasks:     append([]model.Task(nil), s.Tasks...),
	}
}

// GardenSnapshot packages everything that is not a task.
func (s State) GardenSnapshot(ts int64) model.GardenSnapshot {
	return model.GardenSnapshot{
		Type:         model.DocGardenState,
		Timestamp:    ts,
		Plants:       append([]model.Plant(nil), s.Plants...),
		Compost:      s.Compost,
		Level:        s.Level,
		Profile:      s.Profile,
		Sessions:     append([]model.FocusSession(nil), s.Sessions...),
		Achievements: append([]model.Achievement(nil), s.Achievements...),
	}
}

// Stats is the derived dashboard summary.
type Stats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	ArchivedTasks     int `json:"archivedTasks"`
	TotalPlants       int `json:"totalPlants"`
	HealthyPlants     int `json:"healthyPlants"`
	TotalCompost      int `json:"totalCompost"`
	CurrentLevel      int `json:"currentLevel"`
	TotalFocusHours   int `json:"totalFocusHours"`
	AverageFocusScore int `json:"averageFocusScore"`
}
