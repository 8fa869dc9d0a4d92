package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsoknownaszac/tendly/internal/cache"
	"github.com/alsoknownaszac/tendly/internal/config"
	"github.com/alsoknownaszac/tendly/internal/docustore"
	"github.com/alsoknownaszac/tendly/internal/events"
	"github.com/alsoknownaszac/tendly/internal/garden"
	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

const testOwner = "xion1gardener"

type fixture struct {
	engine *Engine
	store  *cache.Memory
	chain  *docustore.Memory
	wallet *wallet.Static
	bus    *events.Bus
	clock  *garden.FakeClock
	client *docustore.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chain := docustore.NewMemory()
	w := wallet.NewStatic(testOwner)
	w.Connect()
	client := docustore.NewClient(chain, chain, w, docustore.DefaultFee, zerolog.Nop())
	store := cache.NewMemory()
	bus := events.NewBus()
	clock := garden.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))

	eng := NewEngine(Options{
		Owner:  testOwner,
		Store:  store,
		Remote: client,
		Wallet: w,
		Bus:    bus,
		Clock:  clock,
		Log:    zerolog.Nop(),
		Config: config.Sync{
			RetryAttempts:     2,
			RetryBaseMS:       1,
			ConfirmAttempts:   5,
			ConfirmIntervalMS: 1,
			OutboxSize:        16,
		},
	})
	t.Cleanup(eng.Close)

	return &fixture{
		engine: eng,
		store:  store,
		chain:  chain,
		wallet: w,
		bus:    bus,
		clock:  clock,
		client: client,
	}
}

func (f *fixture) recordFor(collection string) (Record, bool) {
	for _, r := range f.engine.Records() {
		if r.Collection == collection {
			return r, true
		}
	}
	return Record{}, false
}

func (f *fixture) waitForStatus(t *testing.T, collection string, want Status) Record {
	t.Helper()
	var got Record
	require.Eventually(t, func() bool {
		r, ok := f.recordFor(collection)
		if !ok {
			return false
		}
		got = r
		return r.Status == want
	}, 2*time.Second, 5*time.Millisecond, "record for %s never reached %s", collection, want)
	return got
}

func TestLoadFallsBackToSampleState(t *testing.T) {
	f := newFixture(t)
	f.wallet.Disconnect()

	st, report, err := f.engine.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, report.Sources[CollectionTasks])
	assert.Equal(t, SourceDefaults, report.Sources[CollectionGarden])
	assert.Len(t, st.Tasks, 3)
	assert.Len(t, st.Plants, 1)
	assert.Equal(t, garden.StartingCompost, st.Compost)
	require.NotNil(t, st.Profile)
	assert.Equal(t, 1, st.Level)
}

func TestLoadPrefersLocalCacheOverDefaults(t *testing.T) {
	f := newFixture(t)
	f.wallet.Disconnect()

	tasks := []model.Task{{ID: "task_cached", Title: "Water the ferns", Status: model.StatusPending}}
	require.NoError(t, cache.SetJSON(f.store, cache.KeyTasks, tasks))
	require.NoError(t, cache.SetJSON(f.store, cache.KeyCompost, 42))

	st, report, err := f.engine.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, report.Sources[CollectionTasks])
	assert.Equal(t, SourceLocal, report.Sources[CollectionGarden])
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "Water the ferns", st.Tasks[0].Title)
	assert.Equal(t, 42, st.Compost)
	assert.Empty(t, st.Plants)
}

func TestLoadPrefersNewestRemoteSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Stale local copy that must lose to the chain.
	require.NoError(t, cache.SetJSON(f.store, cache.KeyTasks, []model.Task{{ID: "task_stale"}}))

	old := model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1000,
		Tasks: []model.Task{{ID: "task_old", Title: "Old"}}}
	fresh := model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 2000,
		Tasks: []model.Task{{ID: "task_new", Title: "New"}}}
	_, err := f.client.Store(ctx, CollectionTasks, "snap_old", old)
	require.NoError(t, err)
	_, err = f.client.Store(ctx, CollectionTasks, "snap_new", fresh)
	require.NoError(t, err)

	gs := model.GardenSnapshot{Type: model.DocGardenState, Timestamp: 2000,
		Compost: 77, Level: 3, Profile: &model.Profile{Name: "remote keeper"}}
	_, err = f.client.Store(ctx, CollectionGarden, "snap_garden", gs)
	require.NoError(t, err)

	st, report, err := f.engine.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, SourceRemote, report.Sources[CollectionTasks])
	assert.Equal(t, SourceRemote, report.Sources[CollectionGarden])
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, model.TaskID("task_new"), st.Tasks[0].ID)
	assert.Equal(t, 77, st.Compost)
	assert.Equal(t, 3, st.Level)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "remote keeper", st.Profile.Name)
}

func TestLoadSurfacesCacheCorruption(t *testing.T) {
	f := newFixture(t)
	f.wallet.Disconnect()

	require.NoError(t, f.store.Set(cache.KeyTasks, []byte("{not json")))

	st, report, err := f.engine.Load(context.Background())

	require.ErrorIs(t, err, cache.ErrCorrupt)
	// Corruption is recoverable: the caller still gets a working garden.
	assert.Equal(t, SourceDefaults, report.Sources[CollectionTasks])
	assert.Len(t, st.Tasks, 3)
	assert.Equal(t, garden.StartingCompost, st.Compost)
}

func TestLoadSeedsCleanGardenWhenTasksCameFromRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap := model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 500,
		Tasks: []model.Task{{ID: "task_remote"}}}
	_, err := f.client.Store(ctx, CollectionTasks, "snap_tasks", snap)
	require.NoError(t, err)

	st, report, err := f.engine.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, SourceRemote, report.Sources[CollectionTasks])
	assert.Equal(t, SourceDefaults, report.Sources[CollectionGarden])
	// The sample plant belongs to a sample task that is not present; the
	// garden defaults must not include it.
	assert.Empty(t, st.Plants)
	assert.Equal(t, garden.StartingCompost, st.Compost)
}

func TestSaveLocalWritesEveryAggregate(t *testing.T) {
	f := newFixture(t)

	st := garden.SampleState(testOwner, f.clock.Now())
	f.engine.SaveLocal(st)

	for _, key := range []string{
		cache.KeyTasks, cache.KeyPlants, cache.KeyCompost, cache.KeyLevel,
		cache.KeyProfile, cache.KeyFocusSessions, cache.KeyAchievements,
	} {
		_, ok, err := f.store.Get(key)
		require.NoError(t, err)
		assert.True(t, ok, "key %s not written", key)
	}

	var compost int
	ok, err := cache.GetJSON(f.store, cache.KeyCompost, &compost)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, garden.StartingCompost, compost)
}

func TestMirrorReachesChainAndConfirms(t *testing.T) {
	f := newFixture(t)
	f.engine.Start()

	snap := model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1111,
		Tasks: []model.Task{{ID: "task_a", Title: "Prune roses"}}}
	f.engine.MirrorTasks(snap)

	rec := f.waitForStatus(t, CollectionTasks, StatusSynced)
	assert.NotEmpty(t, rec.DocID)
	assert.NotNil(t, rec.ConfirmedAt)
	assert.Empty(t, rec.LastError)

	doc, err := f.client.Get(context.Background(), rec.DocID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	kind, err := doc.Kind()
	require.NoError(t, err)
	assert.Equal(t, model.DocTasksSnapshot, kind)
}

func TestMirrorPrunesPreviousSnapshot(t *testing.T) {
	f := newFixture(t)
	f.engine.Start()

	f.engine.MirrorGarden(model.GardenSnapshot{Type: model.DocGardenState, Timestamp: 1, Compost: 10})
	first := f.waitForStatus(t, CollectionGarden, StatusSynced)

	f.engine.MirrorGarden(model.GardenSnapshot{Type: model.DocGardenState, Timestamp: 2, Compost: 20})
	require.Eventually(t, func() bool {
		recs := f.engine.Records()
		return len(recs) == 2 && recs[0].Status == StatusSynced && recs[0].DocID != first.DocID
	}, 2*time.Second, 5*time.Millisecond)

	ids := f.chain.Documents()
	assert.Len(t, ids, 1, "confirmed snapshot should replace the previous one")
	assert.NotContains(t, ids, first.DocID)
}

func TestMirrorSkippedWhileDisconnected(t *testing.T) {
	f := newFixture(t)
	f.engine.Start()
	f.wallet.Disconnect()

	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.engine.Records())
	assert.Empty(t, f.chain.Documents())
}

func TestMirrorFailureMarksRecordFailed(t *testing.T) {
	f := newFixture(t)

	// Both retry attempts must fail for the record to land on failed: the
	// one-shot transport error covers the first, the tx failure the second.
	f.chain.ExecErr = context.DeadlineExceeded
	f.chain.FailCode = 11
	f.chain.FailRawLog = "out of gas"
	f.engine.Start()

	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})

	rec := f.waitForStatus(t, CollectionTasks, StatusFailed)
	assert.Contains(t, rec.LastError, "out of gas")
}

func TestMirrorUnconfirmedWhenChainLags(t *testing.T) {
	f := newFixture(t)
	f.chain.ReadLag = 100 // never visible within the polling budget
	f.engine.Start()

	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})

	rec := f.waitForStatus(t, CollectionTasks, StatusUnconfirmed)
	assert.NotEmpty(t, rec.DocID, "the write itself landed")
	assert.Contains(t, rec.LastError, "polling")
}

func TestQueuedMirrorsCoalesceToNewest(t *testing.T) {
	f := newFixture(t)

	// Enqueue before the worker starts so all three sit in the outbox.
	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})
	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 2})
	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 3,
		Tasks: []model.Task{{ID: "task_final"}}})
	f.engine.Start()

	f.waitForStatus(t, CollectionTasks, StatusSynced)

	var synced, superseded int
	for _, r := range f.engine.Records() {
		switch r.Status {
		case StatusSynced:
			synced++
		case StatusSuperseded:
			superseded++
		}
	}
	assert.Equal(t, 1, synced)
	assert.Equal(t, 2, superseded)
	assert.Len(t, f.chain.Documents(), 1, "only the newest snapshot should ship")
}

func TestSyncStatusEventsPublished(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.Subscribe()
	f.engine.Start()

	f.engine.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})
	f.waitForStatus(t, CollectionTasks, StatusSynced)

	var statuses []string
	deadline := time.After(time.Second)
	for len(statuses) < 1 {
		select {
		case ev := <-ch:
			if ev.Type == events.EventSyncStatus {
				if s, ok := ev.Metadata["status"].(string); ok {
					statuses = append(statuses, s)
				}
			}
		case <-deadline:
			t.Fatal("no sync status event observed")
		}
	}
	assert.Contains(t, statuses, string(StatusSynced))
}

func TestOutboxFullMarksFailed(t *testing.T) {
	chain := docustore.NewMemory()
	w := wallet.NewStatic(testOwner)
	w.Connect()
	client := docustore.NewClient(chain, chain, w, docustore.DefaultFee, zerolog.Nop())

	eng := NewEngine(Options{
		Owner:  testOwner,
		Store:  cache.NewMemory(),
		Remote: client,
		Wallet: w,
		Log:    zerolog.Nop(),
		Config: config.Sync{OutboxSize: 1, RetryAttempts: 1, ConfirmAttempts: 1, ConfirmIntervalMS: 1},
	})
	t.Cleanup(eng.Close)

	// Worker never started: the second enqueue overflows the channel.
	eng.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 1})
	eng.MirrorTasks(model.TasksSnapshot{Type: model.DocTasksSnapshot, Timestamp: 2})

	recs := eng.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, StatusFailed, recs[0].Status)
	assert.Equal(t, "outbox full", recs[0].LastError)
	assert.Equal(t, StatusPending, recs[1].Status)
}
