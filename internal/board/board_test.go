package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

type fakeOrderSrc struct {
	orders []pos.RemoteOrder
	err    error
	calls  int
}

func (f *fakeOrderSrc) FetchOrders(ctx context.Context, scope backend.Scope) ([]pos.RemoteOrder, error) {
	f.calls++
	return f.orders, f.err
}

type fakeTableSrc struct {
	tables []pos.Table
}

func (f *fakeTableSrc) FetchTables(ctx context.Context) ([]pos.Table, error) {
	return f.tables, nil
}

type memDedup struct {
	seen map[string]bool
	err  error
}

func (m *memDedup) SeenEvent(ctx context.Context, scope, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := scope + ":" + eventID
	if m.seen[key] {
		return true, nil
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[key] = true
	return false, nil
}

func orderEnv(t *testing.T, eventType, eventID string, o pos.RemoteOrder) pos.Envelope {
	t.Helper()
	env, err := pos.NewEnvelope(eventType, "test", o.ID, o)
	require.NoError(t, err)
	if eventID != "" {
		env.EventID = eventID
	}
	return env
}

func TestApplyCreatedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())

	o := pos.RemoteOrder{ID: "o1", Status: pos.StatusPending, Type: pos.OrderDineIn}
	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderCreated, "", o)))
	after := b.Running()

	// same created event delivered twice, and a fresh duplicate with a new
	// event id: the collection must not change
	env := orderEnv(t, pos.EventOrderCreated, "", o)
	require.NoError(t, b.Apply(ctx, env))
	require.NoError(t, b.Apply(ctx, env))
	assert.Equal(t, after, b.Running())
}

func TestApplyCreatedDoesNotClobberNewerState(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())

	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderUpdated, "", pos.RemoteOrder{ID: "o1", Status: pos.StatusPreparing})))
	// a stale created arriving late is ignored because o1 is present
	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderCreated, "", pos.RemoteOrder{ID: "o1", Status: pos.StatusPending})))

	got, ok := b.Get("o1")
	require.True(t, ok)
	assert.Equal(t, pos.StatusPreparing, got.Status)
}

func TestApplyUpdatedSelfHeals(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())

	// updated for an id never seen: treated as a logical insert
	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderUpdated, "", pos.RemoteOrder{ID: "ghost", Status: pos.StatusReady})))
	got, ok := b.Get("ghost")
	require.True(t, ok)
	assert.Equal(t, pos.StatusReady, got.Status)
}

func TestRunningExcludesTerminalScenarioC(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())
	b.Seed([]pos.RemoteOrder{{ID: "O1", Status: pos.StatusPending}})
	require.Len(t, b.Running(), 1)

	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderUpdated, "", pos.RemoteOrder{ID: "O1", Status: pos.StatusCompleted})))

	assert.Empty(t, b.Running(), "running view must drop completed orders")
	// the entity itself is retained; history is an independent projection
	got, ok := b.Get("O1")
	require.True(t, ok)
	assert.Equal(t, pos.StatusCompleted, got.Status)
}

func TestApplyDeletedRemoves(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())
	b.Seed([]pos.RemoteOrder{{ID: "o1", Status: pos.StatusPending}})

	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderDeleted, "", pos.RemoteOrder{ID: "o1"})))
	_, ok := b.Get("o1")
	assert.False(t, ok)
}

func TestRunningSortedByCreation(t *testing.T) {
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Seed([]pos.RemoteOrder{
		{ID: "late", Status: pos.StatusPending, CreatedAt: t0.Add(time.Minute)},
		{ID: "early", Status: pos.StatusPending, CreatedAt: t0},
	})
	got := b.Running()
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
}

func TestDedupShortCircuits(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, &memDedup{}, zerolog.Nop())

	env := orderEnv(t, pos.EventOrderCreated, "ev-1", pos.RemoteOrder{ID: "o1", Status: pos.StatusPending})
	require.NoError(t, b.Apply(ctx, env))
	// delete out of band, then redeliver the same event id: dedup skips it
	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderDeleted, "ev-2", pos.RemoteOrder{ID: "o1"})))
	require.NoError(t, b.Apply(ctx, env))
	_, ok := b.Get("o1")
	assert.False(t, ok)
}

func TestFailedDecodeDoesNotConsumeDedup(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, &memDedup{}, zerolog.Nop())

	// first delivery has a mangled payload; its event id must not be
	// marked seen, or the clean redelivery below would be skipped
	bad := pos.Envelope{
		EventID:   "ev-1",
		EventType: pos.EventOrderCreated,
		Payload:   []byte(`{"id":`),
	}
	require.Error(t, b.Apply(ctx, bad))

	good := orderEnv(t, pos.EventOrderCreated, "ev-1", pos.RemoteOrder{ID: "o1", Status: pos.StatusPending})
	require.NoError(t, b.Apply(ctx, good))
	_, ok := b.Get("o1")
	assert.True(t, ok, "redelivery after a decode failure must apply")
}

func TestOutOfOrderTransitionAcceptedAtFaceValue(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, nil, zerolog.Nop())
	b.Seed([]pos.RemoteOrder{{ID: "o1", Status: pos.StatusCompleted}})

	// completed -> preparing is not a valid progression, but last event
	// wins by id: the board takes the payload as-is
	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderStatusUpdated, "", pos.RemoteOrder{ID: "o1", Status: pos.StatusPreparing})))
	got, ok := b.Get("o1")
	require.True(t, ok)
	assert.Equal(t, pos.StatusPreparing, got.Status)
}

func TestDedupFailureDegradesToApply(t *testing.T) {
	ctx := context.Background()
	b := NewOrderBoard(&fakeOrderSrc{}, &memDedup{err: errors.New("redis down")}, zerolog.Nop())

	require.NoError(t, b.Apply(ctx, orderEnv(t, pos.EventOrderCreated, "ev-1", pos.RemoteOrder{ID: "o1", Status: pos.StatusPending})))
	_, ok := b.Get("o1")
	assert.True(t, ok, "dedup errors must not block the merge")
}

func TestResyncReseeds(t *testing.T) {
	ctx := context.Background()
	src := &fakeOrderSrc{orders: []pos.RemoteOrder{{ID: "fresh", Status: pos.StatusPending}}}
	b := NewOrderBoard(src, nil, zerolog.Nop())
	b.Seed([]pos.RemoteOrder{{ID: "stale", Status: pos.StatusPending}})

	require.NoError(t, b.Resync(ctx))
	got := b.Running()
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
	assert.Equal(t, 1, src.calls)
}

func TestResyncError(t *testing.T) {
	src := &fakeOrderSrc{err: errors.New("backend down")}
	b := NewOrderBoard(src, nil, zerolog.Nop())
	b.Seed([]pos.RemoteOrder{{ID: "keep", Status: pos.StatusPending}})

	require.Error(t, b.Resync(context.Background()))
	assert.Len(t, b.Running(), 1, "failed resync keeps the current view")
}

func TestTableBoardUpsert(t *testing.T) {
	ctx := context.Background()
	b := NewTableBoard(&fakeTableSrc{}, nil, zerolog.Nop())
	b.Seed([]pos.Table{
		{TableID: "T1", Status: pos.TableAvailable, Capacity: 4},
		{TableID: "T2", Status: pos.TableOccupied, Capacity: 2},
	})

	env, err := pos.NewEnvelope(pos.EventTableUpdated, "test", "T1", pos.Table{
		TableID: "T1", Status: pos.TableOccupied, Capacity: 4,
	})
	require.NoError(t, err)
	require.NoError(t, b.Apply(ctx, env))

	occupied := b.ByStatus(pos.TableOccupied)
	require.Len(t, occupied, 2)
	assert.Empty(t, b.ByStatus(pos.TableAvailable))

	// unknown table id inserts (self-healing, same as orders)
	env2, err := pos.NewEnvelope(pos.EventTableUpdated, "test", "T9", pos.Table{
		TableID: "T9", Status: pos.TableReserved, Capacity: 6,
	})
	require.NoError(t, err)
	require.NoError(t, b.Apply(ctx, env2))
	assert.Len(t, b.All(), 3)
}
