package docustore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

const testOwner = "xion1testowner"

func newTestClient(t *testing.T, mem *Memory) (*Client, *wallet.Static) {
	t.Helper()
	w := wallet.NewStatic(testOwner)
	w.Connect()
	return NewClient(mem, mem, w, DefaultFee, zerolog.Nop()), w
}

func TestStoreReturnsEmittedID(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)

	id, err := c.Store(context.Background(), "tasks", "task_1", model.TaskDoc{
		Type: model.DocTask,
		Task: model.Task{ID: "task_1", Title: "water the garden"},
	})
	require.NoError(t, err)
	assert.Equal(t, "task_1", id)
}

func TestStoreNotConnected(t *testing.T) {
	mem := NewMemory()
	c, w := newTestClient(t, mem)
	w.Disconnect()

	_, err := c.Store(context.Background(), "tasks", "task_1", map[string]string{"type": "task"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStoreTransactionFailedCarriesRawLog(t *testing.T) {
	mem := NewMemory()
	mem.FailCode = 11
	mem.FailRawLog = "out of gas"
	c, _ := newTestClient(t, mem)

	_, err := c.Store(context.Background(), "tasks", "task_1", map[string]string{"type": "task"})
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, uint32(11), txErr.Code)
	assert.Contains(t, txErr.RawLog, "out of gas")
}

func TestStoreMissingEventSurfacesFallbackID(t *testing.T) {
	mem := NewMemory()
	mem.OmitStoredEvent = true
	c, _ := newTestClient(t, mem)

	id, err := c.Store(context.Background(), "tasks", "task_1", map[string]string{"type": "task"})
	assert.ErrorIs(t, err, ErrMissingDocumentID)
	assert.NotEmpty(t, id)
}

func TestQueryEmptyCollection(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)

	docs, err := c.Query(context.Background(), "tasks", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestQueryUnavailableWithoutReadClient(t *testing.T) {
	mem := NewMemory()
	w := wallet.NewStatic(testOwner)
	w.Connect()
	c := NewClient(mem, nil, w, DefaultFee, zerolog.Nop())

	_, err := c.Query(context.Background(), "tasks", 0, 0)
	assert.ErrorIs(t, err, ErrQueryUnavailable)
}

func TestStoreThenQueryRoundTrip(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)
	ctx := context.Background()

	_, err := c.Store(ctx, "tasks", "task_1", model.TaskDoc{
		Type: model.DocTask,
		Task: model.Task{ID: "task_1", Title: "prune roses", Priority: model.PriorityLow},
	})
	require.NoError(t, err)

	docs, err := c.Query(ctx, "tasks", 0, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "task_1", docs[0].ID)
	assert.Equal(t, testOwner, docs[0].Owner)

	kind, err := docs[0].Kind()
	require.NoError(t, err)
	assert.Equal(t, model.DocTask, kind)

	var payload model.TaskDoc
	require.NoError(t, json.Unmarshal(docs[0].Data, &payload))
	assert.Equal(t, "prune roses", payload.Task.Title)
}

func TestReadLagHidesFreshWrites(t *testing.T) {
	mem := NewMemory()
	mem.ReadLag = 2
	c, _ := newTestClient(t, mem)
	ctx := context.Background()

	_, err := c.Store(ctx, "tasks", "task_1", map[string]string{"type": "task"})
	require.NoError(t, err)

	docs, err := c.Query(ctx, "tasks", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, docs, "write should still be invisible")

	docs, err = c.Query(ctx, "tasks", 0, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "write should be visible after the lag window")
}

func TestGetAbsentIsNotAnError(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)

	doc, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUpdateRequiresExistingDocument(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)
	ctx := context.Background()

	err := c.Update(ctx, "tasks", "ghost", map[string]string{"type": "task"})
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)

	_, err = c.Store(ctx, "tasks", "task_1", map[string]string{"type": "task"})
	require.NoError(t, err)
	require.NoError(t, c.Update(ctx, "tasks", "task_1", map[string]string{"type": "task", "v": "2"}))
}

func TestDeleteRemovesDocument(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)
	ctx := context.Background()

	_, err := c.Store(ctx, "tasks", "task_1", map[string]string{"type": "task"})
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "tasks", "task_1"))

	docs, err := c.Query(ctx, "tasks", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestQuerySkipsMalformedPayloads(t *testing.T) {
	mem := NewMemory()
	c, _ := newTestClient(t, mem)
	ctx := context.Background()

	res, err := mem.Execute(ctx, testOwner, SetMsg{Set: DocBody{
		Collection: "tasks",
		Document:   "bad",
		Data:       "{not json",
	}}, DefaultFee)
	require.NoError(t, err)
	require.Zero(t, res.Code)

	_, err = c.Store(ctx, "tasks", "good", map[string]string{"type": "task"})
	require.NoError(t, err)

	docs, err := c.Query(ctx, "tasks", 0, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].ID)
}

func TestExecuteTransportErrorPropagates(t *testing.T) {
	mem := NewMemory()
	mem.ExecErr = errors.New("rpc unavailable")
	c, _ := newTestClient(t, mem)

	_, err := c.Store(context.Background(), "tasks", "task_1", map[string]string{"type": "task"})
	assert.ErrorContains(t, err, "rpc unavailable")
}
