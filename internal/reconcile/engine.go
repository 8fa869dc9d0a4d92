// Package reconcile decides where garden state comes from and keeps the
// local cache and the remote document store eventually consistent. The local
// copy is always written first; the remote store is a durability backstop,
// mirrored asynchronously and never allowed to fail a mutation.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alsoknownaszac/tendly/internal/cache"
	"github.com/alsoknownaszac/tendly/internal/config"
	"github.com/alsoknownaszac/tendly/internal/events"
	"github.com/alsoknownaszac/tendly/internal/garden"
	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/retry"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

// Remote document collections, one snapshot stream per aggregate group.
const (
	CollectionTasks  = "tasks"
	CollectionGarden = "garden"
)

// Source says where an aggregate was hydrated from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceDefaults Source = "defaults"
)

// Status tracks a mirrored snapshot through the outbox.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSynced      Status = "synced"
	StatusUnconfirmed Status = "unconfirmed" // submitted, never observed back
	StatusFailed      Status = "failed"
	StatusSuperseded  Status = "superseded" // replaced by a newer snapshot before submit
)

// Record is one outbox entry: a snapshot queued for remote mirroring and its
// sync status, visible to the presentation layer.
type Record struct {
	ID          string     `json:"id"`
	Collection  string     `json:"collection"`
	DocID       string     `json:"documentId,omitempty"`
	Timestamp   int64      `json:"timestamp"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// Remote is the slice of the document store client the engine needs.
type Remote interface {
	Store(ctx context.Context, collection, docID string, payload any) (string, error)
	Query(ctx context.Context, collection string, limit, offset int) ([]model.Document, error)
	Delete(ctx context.Context, collection, docID string) error
}

// Report describes the outcome of a hydration pass.
type Report struct {
	Sources map[string]Source `json:"sources"`
}

type job struct {
	recordID   string
	collection string
	timestamp  int64
	payload    any
}

// Engine implements garden.Persister on the write side and hydration on the
// read side.
type Engine struct {
	store  cache.Store
	remote Remote
	wallet wallet.Provider
	bus    *events.Bus
	clock  garden.Clock
	log    zerolog.Logger
	cfg    config.Sync
	owner  string

	mu       sync.Mutex
	records  []Record
	lastSnap map[string]string // collection -> last confirmed snapshot doc id

	jobs      chan job
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

type Options struct {
	Owner  string
	Store  cache.Store
	Remote Remote // nil disables remote mirroring entirely
	Wallet wallet.Provider
	Bus    *events.Bus
	Clock  garden.Clock
	Log    zerolog.Logger
	Config config.Sync
}

func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = garden.RealClock{}
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Wallet == nil {
		opts.Wallet = wallet.Disconnected{}
	}
	cfg := opts.Config
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = 256
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:     opts.Store,
		remote:    opts.Remote,
		wallet:    opts.Wallet,
		bus:       opts.Bus,
		clock:     opts.Clock,
		log:       opts.Log,
		cfg:       cfg,
		owner:     opts.Owner,
		lastSnap:  map[string]string{},
		jobs:      make(chan job, cfg.OutboxSize),
		runCtx:    ctx,
		runCancel: cancel,
	}
}

var _ garden.Persister = (*Engine)(nil)

// Start launches the outbox worker. Safe to call once; mirrored snapshots
// queue up until then.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.wg.Add(1)
		go e.run()
	})
}

// Close stops the outbox worker and waits for the in-flight job. Queued jobs
// are dropped; their records stay pending.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		e.runCancel()
		e.wg.Wait()
	})
}

// --- garden.Persister ---

// SaveLocal writes every aggregate to the local cache. Failures are logged
// and swallowed: persistence is a side effect, never a gate.
func (e *Engine) SaveLocal(st garden.State) {
	if e.store == nil {
		return
	}
	e.setJSON(cache.KeyTasks, st.Tasks)
	e.setJSON(cache.KeyPlants, st.Plants)
	e.setJSON(cache.KeyCompost, st.Compost)
	e.setJSON(cache.KeyLevel, st.Level)
	e.setJSON(cache.KeyFocusSessions, st.Sessions)
	e.setJSON(cache.KeyAchievements, st.Achievements)
	if st.Profile != nil {
		e.setJSON(cache.KeyProfile, st.Profile)
	}
}

func (e *Engine) setJSON(key string, v any) {
	if err := cache.SetJSON(e.store, key, v); err != nil {
		e.log.Warn().Err(err).Str("key", key).Msg("local cache write failed")
	}
}

func (e *Engine) MirrorTasks(snap model.TasksSnapshot) {
	e.enqueue(CollectionTasks, snap.Timestamp, snap)
}

func (e *Engine) MirrorGarden(snap model.GardenSnapshot) {
	e.enqueue(CollectionGarden, snap.Timestamp, snap)
}

func (e *Engine) enqueue(collection string, ts int64, payload any) {
	if e.remote == nil || !e.wallet.IsConnected() {
		e.log.Debug().Str("collection", collection).Msg("remote mirror skipped, not connected")
		return
	}

	rec := Record{
		ID:          model.NewID("sync"),
		Collection:  collection,
		Timestamp:   ts,
		Status:      StatusPending,
		SubmittedAt: e.clock.Now(),
	}

	e.mu.Lock()
	e.records = append(e.records, rec)
	e.mu.Unlock()

	select {
	case e.jobs <- job{recordID: rec.ID, collection: collection, timestamp: ts, payload: payload}:
	default:
		e.setStatus(rec.ID, StatusFailed, "outbox full")
	}
}

// Records returns the outbox, newest first.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Record, len(e.records))
	for i, r := range e.records {
		out[len(e.records)-1-i] = r
	}
	return out
}

func (e *Engine) setStatus(recordID string, status Status, lastErr string) {
	var collection string
	e.mu.Lock()
	for i := range e.records {
		if e.records[i].ID != recordID {
			continue
		}
		e.records[i].Status = status
		e.records[i].LastError = lastErr
		if status == StatusSynced {
			now := e.clock.Now()
			e.records[i].ConfirmedAt = &now
		}
		collection = e.records[i].Collection
		break
	}
	e.mu.Unlock()

	e.bus.Publish(events.EventSyncStatus, events.Metadata{
		"record_id":  recordID,
		"collection": collection,
		"status":     string(status),
	})
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.runCtx.Done():
			return
		case j := <-e.jobs:
			j = e.coalesce(j)
			e.process(j)
		}
	}
}

// coalesce drains queued jobs for the same collection and keeps only the
// newest: snapshots are whole-collection replacements, so shipping a stale
// one is pure waste.
func (e *Engine) coalesce(j job) job {
	for {
		select {
		case next := <-e.jobs:
			if next.collection == j.collection {
				e.setStatus(j.recordID, StatusSuperseded, "")
				j = next
				continue
			}
			// Different collection: process it after this one.
			e.process(j)
			j = next
		default:
			return j
		}
	}
}

func (e *Engine) process(j job) {
	ctx := e.runCtx
	docID := model.NewID("snap")

	var storedID string
	err := retry.Do(ctx, e.cfg.RetryAttempts, e.cfg.RetryBase(), func(ctx context.Context) error {
		id, err := e.remote.Store(ctx, j.collection, docID, j.payload)
		if err != nil {
			return err
		}
		storedID = id
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("collection", j.collection).Msg("remote mirror failed")
		e.setStatus(j.recordID, StatusFailed, err.Error())
		return
	}

	e.mu.Lock()
	for i := range e.records {
		if e.records[i].ID == j.recordID {
			e.records[i].DocID = storedID
			break
		}
	}
	e.mu.Unlock()

	// The chain has no read-after-write guarantee: poll the collection until
	// the snapshot shows up before trusting the write.
	err = retry.Poll(ctx, e.cfg.ConfirmAttempts, e.cfg.ConfirmInterval(), func(ctx context.Context) (bool, error) {
		docs, err := e.remote.Query(ctx, j.collection, 0, 0)
		if err != nil {
			return false, err
		}
		for _, d := range docs {
			if d.ID == storedID {
				return true, nil
			}
		}
		return false, nil
	})
	switch {
	case errors.Is(err, retry.ErrExhausted):
		e.log.Warn().Str("collection", j.collection).Str("doc_id", storedID).
			Msg("snapshot submitted but not observed within polling budget")
		e.setStatus(j.recordID, StatusUnconfirmed, "confirmation polling exhausted")
		return
	case err != nil:
		e.setStatus(j.recordID, StatusUnconfirmed, err.Error())
		return
	}

	e.setStatus(j.recordID, StatusSynced, "")

	// Confirmed: the previous snapshot for this collection is dead weight.
	e.mu.Lock()
	prev := e.lastSnap[j.collection]
	e.lastSnap[j.collection] = storedID
	e.mu.Unlock()
	if prev != "" && prev != storedID {
		if err := e.remote.Delete(ctx, j.collection, prev); err != nil {
			e.log.Debug().Err(err).Str("doc_id", prev).Msg("prune of old snapshot failed")
		}
	}
}

// --- hydration ---

// Load runs the full hydration sequence for every aggregate: remote when
// connected, then local cache, then seeded defaults. Remote trouble of any
// kind degrades silently; only local-cache corruption is reported, and even
// then the returned state is usable (the defaults).
func (e *Engine) Load(ctx context.Context) (garden.State, Report, error) {
	report := Report{Sources: map[string]Source{}}
	now := e.clock.Now()
	sample := garden.SampleState(e.owner, now)

	var corrupt error
	st := garden.State{}

	// Tasks aggregate.
	if tasks, ok := e.loadRemoteTasks(ctx); ok {
		st.Tasks = tasks
		report.Sources[CollectionTasks] = SourceRemote
	} else if tasks, ok, err := e.loadLocalTasks(); err != nil {
		corrupt = errors.Join(corrupt, err)
		st.Tasks = sample.Tasks
		report.Sources[CollectionTasks] = SourceDefaults
	} else if ok {
		st.Tasks = tasks
		report.Sources[CollectionTasks] = SourceLocal
	} else {
		st.Tasks = sample.Tasks
		report.Sources[CollectionTasks] = SourceDefaults
	}

	// Garden aggregate (plants, compost, level, profile, sessions,
	// achievements).
	if snap, ok := e.loadRemoteGarden(ctx); ok {
		applyGardenSnapshot(&st, snap)
		report.Sources[CollectionGarden] = SourceRemote
	} else if loaded, ok, err := e.loadLocalGarden(); err != nil {
		corrupt = errors.Join(corrupt, err)
		applyGardenDefaults(&st, sample, report.Sources[CollectionTasks])
		report.Sources[CollectionGarden] = SourceDefaults
	} else if ok {
		st.Plants = loaded.Plants
		st.Compost = loaded.Compost
		st.Level = loaded.Level
		st.Profile = loaded.Profile
		st.Sessions = loaded.Sessions
		st.Achievements = loaded.Achievements
		report.Sources[CollectionGarden] = SourceLocal
	} else {
		applyGardenDefaults(&st, sample, report.Sources[CollectionTasks])
		report.Sources[CollectionGarden] = SourceDefaults
	}

	normalize(&st)

	for agg, src := range report.Sources {
		e.log.Info().Str("aggregate", agg).Str("source", string(src)).Msg("hydrated")
	}
	return st, report, corrupt
}

func (e *Engine) remoteAvailable() bool {
	return e.remote != nil && e.wallet.IsConnected()
}

func (e *Engine) loadRemoteTasks(ctx context.Context) ([]model.Task, bool) {
	if !e.remoteAvailable() {
		return nil, false
	}
	docs, err := e.remote.Query(ctx, CollectionTasks, 0, 0)
	if err != nil {
		e.log.Warn().Err(err).Msg("remote tasks query failed, falling back to local")
		return nil, false
	}

	var best *model.TasksSnapshot
	for _, d := range docs {
		var snap model.TasksSnapshot
		if err := json.Unmarshal(d.Data, &snap); err != nil || snap.Type != model.DocTasksSnapshot {
			continue
		}
		if best == nil || snap.Timestamp > best.Timestamp {
			s := snap
			best = &s
		}
	}
	if best == nil {
		return nil, false
	}
	e.mu.Lock()
	e.lastSnap[CollectionTasks] = latestDocID(docs, best.Timestamp)
	e.mu.Unlock()
	return best.Tasks, true
}

func (e *Engine) loadRemoteGarden(ctx context.Context) (*model.GardenSnapshot, bool) {
	if !e.remoteAvailable() {
		return nil, false
	}
	docs, err := e.remote.Query(ctx, CollectionGarden, 0, 0)
	if err != nil {
		e.log.Warn().Err(err).Msg("remote garden query failed, falling back to local")
		return nil, false
	}

	var best *model.GardenSnapshot
	for _, d := range docs {
		var snap model.GardenSnapshot
		if err := json.Unmarshal(d.Data, &snap); err != nil || snap.Type != model.DocGardenState {
			continue
		}
		if best == nil || snap.Timestamp > best.Timestamp {
			s := snap
			best = &s
		}
	}
	if best == nil {
		return nil, false
	}
	e.mu.Lock()
	e.lastSnap[CollectionGarden] = latestDocID(docs, best.Timestamp)
	e.mu.Unlock()
	return best, true
}

func latestDocID(docs []model.Document, ts int64) string {
	for _, d := range docs {
		var head struct {
			Timestamp int64 `json:"timestamp"`
		}
		if json.Unmarshal(d.Data, &head) == nil && head.Timestamp == ts {
			return d.ID
		}
	}
	return ""
}

func (e *Engine) loadLocalTasks() ([]model.Task, bool, error) {
	if e.store == nil {
		return nil, false, nil
	}
	var tasks []model.Task
	ok, err := cache.GetJSON(e.store, cache.KeyTasks, &tasks)
	if err != nil {
		return nil, false, err
	}
	return tasks, ok, nil
}

func (e *Engine) loadLocalGarden() (garden.State, bool, error) {
	var st garden.State
	if e.store == nil {
		return st, false, nil
	}

	found := false
	type load struct {
		key string
		dst any
	}
	var profile model.Profile
	loads := []load{
		{cache.KeyPlants, &st.Plants},
		{cache.KeyCompost, &st.Compost},
		{cache.KeyLevel, &st.Level},
		{cache.KeyFocusSessions, &st.Sessions},
		{cache.KeyAchievements, &st.Achievements},
	}
	for _, l := range loads {
		ok, err := cache.GetJSON(e.store, l.key, l.dst)
		if err != nil {
			return garden.State{}, false, err
		}
		found = found || ok
	}
	ok, err := cache.GetJSON(e.store, cache.KeyProfile, &profile)
	if err != nil {
		return garden.State{}, false, err
	}
	if ok {
		found = true
		st.Profile = &profile
	}
	return st, found, nil
}

func applyGardenSnapshot(st *garden.State, snap *model.GardenSnapshot) {
	st.Plants = snap.Plants
	st.Compost = snap.Compost
	st.Level = snap.Level
	st.Profile = snap.Profile
	st.Sessions = snap.Sessions
	st.Achievements = snap.Achievements
}

// applyGardenDefaults seeds the garden aggregate. The full sample garden
// (with its sample plant) only makes sense alongside the sample tasks;
// when the tasks aggregate hydrated from elsewhere, seed a clean garden so
// no plant points at a task that does not exist.
func applyGardenDefaults(st *garden.State, sample garden.State, taskSource Source) {
	if taskSource == SourceDefaults {
		st.Plants = sample.Plants
	} else {
		st.Plants = []model.Plant{}
	}
	st.Compost = sample.Compost
	st.Level = sample.Level
	st.Profile = sample.Profile
	st.Sessions = sample.Sessions
	st.Achievements = sample.Achievements
}

func normalize(st *garden.State) {
	if st.Tasks == nil {
		st.Tasks = []model.Task{}
	}
	if st.Plants == nil {
		st.Plants = []model.Plant{}
	}
	if st.Sessions == nil {
		st.Sessions = []model.FocusSession{}
	}
	if st.Achievements == nil {
		st.Achievements = []model.Achievement{}
	}
	if st.Level == 0 {
		st.Level = 1
	}
}
