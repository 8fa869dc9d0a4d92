// Package garden owns the in-memory authoritative view of one account's
// task garden. Every mutation lands here first; persistence and the remote
// mirror are side effects handed to a Persister and never gate the visible
// state change.
package garden

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alsoknownaszac/tendly/internal/events"
	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/progression"
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrEmptyTitle   = errors.New("task title must not be empty")
	ErrBadPriority  = errors.New("unknown priority")
	ErrBadCategory  = errors.New("unknown category")
	ErrTaskArchived = errors.New("task is archived")
)

// Persister receives the side effects of every mutation: a synchronous
// best-effort local write and asynchronous remote snapshot mirroring.
// Implementations must never block on the network in SaveLocal and must
// swallow their own failures.
type Persister interface {
	SaveLocal(st State)
	MirrorTasks(snap model.TasksSnapshot)
	MirrorGarden(snap model.GardenSnapshot)
}

// NopPersister is used when the garden runs purely in memory.
type NopPersister struct{}

func (NopPersister) SaveLocal(State)                   {}
func (NopPersister) MirrorTasks(model.TasksSnapshot)   {}
func (NopPersister) MirrorGarden(model.GardenSnapshot) {}

type Options struct {
	Owner string
	Clock Clock
	Bus   *events.Bus
	Sink  Persister
	Log   zerolog.Logger
	Seed  int64 // rng seed for plant positions; 0 means time-based
}

// Service is the single domain state manager shared by every consumer.
// All mutations are serialized behind one mutex: two rapid completions can
// no longer read a stale collection out from under each other.
type Service struct {
	mu    sync.Mutex
	owner string
	st    State
	clock Clock
	rng   *rand.Rand
	bus   *events.Bus
	sink  Persister
	log   zerolog.Logger
}

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Sink == nil {
		opts.Sink = NopPersister{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Clock.Now().UnixNano()
	}
	return &Service{
		owner: opts.Owner,
		clock: opts.Clock,
		rng:   rand.New(rand.NewSource(seed)),
		bus:   opts.Bus,
		sink:  opts.Sink,
		log:   opts.Log,
	}
}

// Replace swaps in a freshly hydrated state. Used after initial load and on
// manual refresh.
func (s *Service) Replace(st State) {
	s.mu.Lock()
	s.st = st.Clone()
	s.mu.Unlock()
	s.log.Info().Int("tasks", len(st.Tasks)).Int("plants", len(st.Plants)).Msg("garden state replaced")
	s.bus.Publish(events.EventHydrated, events.Metadata{"tasks": len(st.Tasks)})
}

// Bus exposes the change-event stream for the presentation layer.
func (s *Service) Bus() *events.Bus { return s.bus }

// Snapshot returns a copy of the full current state.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

type CreateTask struct {
	Title                 string         `json:"title"`
	Description           string         `json:"description"`
	Priority              model.Priority `json:"priority"`
	Category              model.Category `json:"category"`
	EstimatedFocusMinutes int            `json:"estimatedFocusTime"`
	DueDate               *time.Time     `json:"dueDate"`
	Tags                  []string       `json:"tags"`
}

// TaskPatch is a partial update. nil pointer => "no change".
type TaskPatch struct {
	Title                 *string         `json:"title,omitempty"`
	Description           *string         `json:"description,omitempty"`
	Priority              *model.Priority `json:"priority,omitempty"`
	Category              *model.Category `json:"category,omitempty"`
	EstimatedFocusMinutes *int            `json:"estimatedFocusTime,omitempty"`
	DueDate               *time.Time      `json:"dueDate,omitempty"`
	Tags                  *[]string       `json:"tags,omitempty"`
}

func (s *Service) CreateTask(ctx context.Context, in CreateTask) (model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(in.Priority) {
		return model.Task{}, ErrBadPriority
	}
	if in.Category == "" {
		in.Category = model.CategoryPersonal
	}
	if !model.ValidCategory(in.Category) {
		return model.Task{}, ErrBadCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	t := model.Task{
		ID:                    model.TaskID(model.NewID("task")),
		OwnerID:               s.owner,
		Title:                 strings.TrimSpace(in.Title),
		Description:           strings.TrimSpace(in.Description),
		Priority:              in.Priority,
		Category:              in.Category,
		Status:                model.StatusPending,
		EstimatedFocusMinutes: in.EstimatedFocusMinutes,
		Tags:                  in.Tags,
		CreatedAt:             now,
		UpdatedAt:             now,
		DueDate:               in.DueDate,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	t.Rederive()

	s.st.Tasks = append([]model.Task{t}, s.st.Tasks...)

	s.publishLocked(events.EventTaskCreated, events.Metadata{"task_id": string(t.ID)})
	s.persistLocked(true, false)
	return t, nil
}

func (s *Service) UpdateTask(ctx context.Context, id model.TaskID, patch TaskPatch) (model.Task, error) {
	if patch.Priority != nil && !model.ValidPriority(*patch.Priority) {
		return model.Task{}, ErrBadPriority
	}
	if patch.Category != nil && !model.ValidCategory(*patch.Category) {
		return model.Task{}, ErrBadCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndexLocked(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	t := s.st.Tasks[i]

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return model.Task{}, ErrEmptyTitle
		}
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
		t.Rederive()
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.EstimatedFocusMinutes != nil {
		t.EstimatedFocusMinutes = *patch.EstimatedFocusMinutes
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		if *patch.Tags == nil {
			t.Tags = []string{}
		} else {
			t.Tags = *patch.Tags
		}
	}
	t.UpdatedAt = s.clock.Now()
	s.st.Tasks[i] = t

	// A priority edit changes the plant a completed task grew.
	if patch.Priority != nil && t.Status == model.StatusCompleted {
		for j := range s.st.Plants {
			if s.st.Plants[j].TaskID == t.ID {
				s.st.Plants[j].Type = t.PlantType
			}
		}
	}

	s.publishLocked(events.EventTaskUpdated, events.Metadata{"task_id": string(t.ID)})
	s.persistLocked(true, patch.Priority != nil)
	return t, nil
}

// CompleteTask toggles completion. Completing awards compost and plants the
// task's reward; un-completing takes both back (compost clamped at zero).
func (s *Service) CompleteTask(ctx context.Context, id model.TaskID) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndexLocked(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	t := s.st.Tasks[i]
	if t.Status == model.StatusArchived {
		return model.Task{}, ErrTaskArchived
	}

	now := s.clock.Now()
	if t.Status == model.StatusCompleted {
		t.Status = model.StatusPending
		t.CompletedAt = nil
		t.UpdatedAt = now
		s.st.Tasks[i] = t

		s.removePlantForLocked(t.ID)
		s.addCompostLocked(-t.CompostReward)
		s.publishLocked(events.EventTaskUncompleted, events.Metadata{"task_id": string(t.ID)})
	} else {
		t.Status = model.StatusCompleted
		t.CompletedAt = &now
		t.UpdatedAt = now
		s.st.Tasks[i] = t

		s.plantForLocked(t, now)
		s.addCompostLocked(t.CompostReward)
		if s.st.Profile != nil {
			s.st.Profile.TotalTasksComplete++
			s.st.Profile.LastActiveAt = now
		}
		s.publishLocked(events.EventTaskCompleted, events.Metadata{
			"task_id": string(t.ID),
			"reward":  t.CompostReward,
		})
	}

	s.persistLocked(true, true)
	return t, nil
}

// ArchiveTask is one-way: there is no un-archive. (Whether one should exist
// is an open product question; the observed behavior is kept.)
func (s *Service) ArchiveTask(ctx context.Context, id model.TaskID) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndexLocked(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	t := s.st.Tasks[i]
	if t.Status == model.StatusArchived {
		return t, nil
	}

	wasCompleted := t.Status == model.StatusCompleted
	t.Status = model.StatusArchived
	t.UpdatedAt = s.clock.Now()
	s.st.Tasks[i] = t

	// Plants exist only for tasks whose status is exactly "completed".
	// Earned compost stays earned.
	if wasCompleted {
		s.removePlantForLocked(t.ID)
	}

	s.publishLocked(events.EventTaskArchived, events.Metadata{"task_id": string(t.ID)})
	s.persistLocked(true, wasCompleted)
	return t, nil
}

// DeleteTask removes the task and its plant from storage entirely.
func (s *Service) DeleteTask(ctx context.Context, id model.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.st.Tasks = append(s.st.Tasks[:i], s.st.Tasks[i+1:]...)
	s.removePlantForLocked(id)

	s.publishLocked(events.EventTaskDeleted, events.Metadata{"task_id": string(id)})
	s.persistLocked(true, true)
	return nil
}

// ListFilter narrows and orders the task list.
//
// Status: "" | "active" (pending+completed) | "all" | "pending" |
// "completed" | "archived".
type ListFilter struct {
	Status   string
	Category string
	Priority string
	SortBy   string // "createdAt" (default) | "updatedAt" | "dueDate" | "priority"
	SortAsc  bool
	Limit    int
}

func (s *Service) ListTasks(ctx context.Context, f ListFilter) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := func(t model.Task) bool {
		switch strings.ToLower(strings.TrimSpace(f.Status)) {
		case "", "active":
			if !t.Active() {
				return false
			}
		case "all":
		case "pending":
			if t.Status != model.StatusPending {
				return false
			}
		case "completed":
			if t.Status != model.StatusCompleted {
				return false
			}
		case "archived":
			if t.Status != model.StatusArchived {
				return false
			}
		default:
			if !t.Active() {
				return false
			}
		}

		if f.Category != "" && t.Category != model.Category(f.Category) {
			return false
		}
		if f.Priority != "" && t.Priority != model.Priority(f.Priority) {
			return false
		}
		return true
	}

	out := make([]model.Task, 0, len(s.st.Tasks))
	for _, t := range s.st.Tasks {
		if matches(t) {
			out = append(out, t)
		}
	}

	less := taskLess(f.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortAsc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func taskLess(sortBy string) func(a, b model.Task) bool {
	switch sortBy {
	case "updatedAt":
		return func(a, b model.Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "dueDate":
		return func(a, b model.Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		}
	case "priority":
		rank := map[model.Priority]int{model.PriorityLow: 0, model.PriorityMedium: 1, model.PriorityHigh: 2}
		return func(a, b model.Task) bool { return rank[a.Priority] < rank[b.Priority] }
	default:
		return func(a, b model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (s *Service) GetTask(ctx context.Context, id model.TaskID) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndexLocked(id)
	if i < 0 {
		return model.Task{}, ErrNotFound
	}
	return s.st.Tasks[i], nil
}

func (s *Service) Plants(ctx context.Context) []model.Plant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Plant(nil), s.st.Plants...)
}

func (s *Service) Compost(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Compost
}

func (s *Service) Profile(ctx context.Context) *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Profile == nil {
		return nil
	}
	p := *s.st.Profile
	p.UnlockedSeedTypes = append([]string(nil), s.st.Profile.UnlockedSeedTypes...)
	return &p
}

type SessionInput struct {
	DurationSeconds int           `json:"duration"`
	Distractions    int           `json:"distractionsCount"`
	TaskID          *model.TaskID `json:"taskId,omitempty"`
	Mood            string        `json:"mood,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// RecordFocusSession logs a focus session, pays out compost (2 per full
// minute) and grows every plant in the garden.
func (s *Service) RecordFocusSession(ctx context.Context, in SessionInput) (model.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	session := model.FocusSession{
		ID:              model.NewID("session"),
		OwnerID:         s.owner,
		TaskID:          in.TaskID,
		DurationSeconds: in.DurationSeconds,
		PlannedSeconds:  in.DurationSeconds,
		StartTime:       now.Add(-time.Duration(in.DurationSeconds) * time.Second),
		EndTime:         now,
		Distractions:    in.Distractions,
		FocusScore:      max(0, 100-in.Distractions*10),
		CompostEarned:   in.DurationSeconds / 60 * 2,
		GrowthContrib:   10,
		SessionType:     "pomodoro",
		Mood:            in.Mood,
		Notes:           in.Notes,
	}
	if session.Mood == "" {
		session.Mood = "focused"
	}

	s.st.Sessions = append(s.st.Sessions, session)
	s.addCompostLocked(session.CompostEarned)

	for i := range s.st.Plants {
		s.st.Plants[i].Grow(session.GrowthContrib, 2)
	}
	if len(s.st.Plants) > 0 {
		s.publishLocked(events.EventPlantGrown, events.Metadata{"plants": len(s.st.Plants)})
	}
	if s.st.Profile != nil {
		s.st.Profile.LastActiveAt = now
	}

	s.publishLocked(events.EventSessionRecorded, events.Metadata{
		"session_id": session.ID,
		"earned":     session.CompostEarned,
	})
	s.persistLocked(false, true)
	return session, nil
}

// ApplyVerification folds an externally verified follower count into the
// profile. Level and the unlocked seed set only ever grow.
func (s *Service) ApplyVerification(ctx context.Context, followerCount int) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Profile == nil {
		return nil, errors.New("no profile loaded")
	}

	now := s.clock.Now()
	tier := progression.TierFor(followerCount)

	p := s.st.Profile
	p.VerifiedFollowers = &followerCount
	p.VerifiedAt = &now
	p.LastActiveAt = now
	if tier.Level > p.Level {
		p.Level = tier.Level
	}
	p.UnlockSeeds(tier.Seeds)
	s.st.Level = p.Level

	for _, key := range tier.Achievements {
		if s.hasAchievementLocked(key) {
			continue
		}
		s.st.Achievements = append(s.st.Achievements, model.Achievement{
			ID:         model.NewID("ach"),
			OwnerID:    s.owner,
			Key:        key,
			UnlockedAt: now,
			Progress:   100,
			Completed:  true,
		})
	}

	s.publishLocked(events.EventProfileVerified, events.Metadata{
		"followers": followerCount,
		"level":     p.Level,
	})
	s.persistLocked(false, true)

	out := *p
	out.UnlockedSeedTypes = append([]string(nil), p.UnlockedSeedTypes...)
	return &out, nil
}

func (s *Service) Achievements(ctx context.Context) []model.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Achievement(nil), s.st.Achievements...)
}

func (s *Service) Sessions(ctx context.Context) []model.FocusSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FocusSession(nil), s.st.Sessions...)
}

func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalPlants:  len(s.st.Plants),
		TotalCompost: s.st.Compost,
		CurrentLevel: s.st.Level,
	}
	for _, t := range s.st.Tasks {
		st.TotalTasks++
		switch t.Status {
		case model.StatusCompleted:
			st.CompletedTasks++
		case model.StatusPending:
			st.PendingTasks++
		case model.StatusArchived:
			st.ArchivedTasks++
		}
	}
	for _, p := range s.st.Plants {
		if p.Health > 80 {
			st.HealthyPlants++
		}
	}
	totalSeconds := 0
	totalScore := 0
	for _, sess := range s.st.Sessions {
		totalSeconds += sess.DurationSeconds
		totalScore += sess.FocusScore
	}
	st.TotalFocusHours = totalSeconds / 3600
	if n := len(s.st.Sessions); n > 0 {
		st.AverageFocusScore = totalScore / n
	}
	return st
}

// --- internal helpers, caller holds s.mu ---

func (s *Service) taskIndexLocked(id model.TaskID) int {
	for i, t := range s.st.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) hasAchievementLocked(key string) bool {
	for _, a := range s.st.Achievements {
		if a.Key == key {
			return true
		}
	}
	return false
}

func (s *Service) addCompostLocked(delta int) {
	next := s.st.Compost + delta
	if next < 0 {
		next = 0
	}
	s.st.Compost = next
	if s.st.Profile != nil && delta > 0 {
		s.st.Profile.TotalCompost += delta
	}
	s.publishLocked(events.EventCompostChanged, events.Metadata{
		"delta":   delta,
		"balance": s.st.Compost,
	})
}

func (s *Service) plantForLocked(t model.Task, now time.Time) {
	plant := model.Plant{
		ID:      model.PlantID(model.NewID("plant")),
		OwnerID: s.owner,
		TaskID:  t.ID,
		Type:    t.PlantType,
		Species: model.Species{
			ID:                 "basic",
			Name:               "Basic " + string(t.PlantType),
			Rarity:             "common",
			GrowthRate:         1.0,
			CompostRequirement: t.CompostReward,
			Description:        "Grown from completing \"" + t.Title + "\"",
		},
		Growth: 25,
		Health: 100,
		Position: model.Position{
			X: s.rng.Float64()*200 + 50,
			Y: s.rng.Float64()*200 + 150,
		},
		PlantedAt:     now,
		SpecialTraits: []string{},
	}
	s.st.Plants = append(s.st.Plants, plant)
	s.publishLocked(events.EventPlantCreated, events.Metadata{
		"plant_id": string(plant.ID),
		"task_id":  string(t.ID),
	})
}

func (s *Service) removePlantForLocked(taskID model.TaskID) {
	kept := s.st.Plants[:0]
	removed := false
	for _, p := range s.st.Plants {
		if p.TaskID == taskID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.st.Plants = kept
	if removed {
		s.publishLocked(events.EventPlantRemoved, events.Metadata{"task_id": string(taskID)})
	}
}

func (s *Service) publishLocked(t events.EventType, md events.Metadata) {
	s.bus.Publish(t, md)
}

// persistLocked hands the mutation's side effects to the sink: the local
// write happens before we return (still under the mutex, so writers always
// see whole collections) and the remote mirror is queued, never awaited.
func (s *Service) persistLocked(tasksChanged, gardenChanged bool) {
	snap := s.st.Clone()
	s.sink.SaveLocal(snap)

	ts := model.EpochMillis(s.clock.Now())
	if tasksChanged {
		s.sink.MirrorTasks(snap.TasksSnapshot(ts))
	}
	if gardenChanged {
		s.sink.MirrorGarden(snap.GardenSnapshot(ts))
	}
}
