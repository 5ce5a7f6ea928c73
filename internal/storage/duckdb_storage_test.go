package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-chain/eventcore/internal/storage"
	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/hash"
	"github.com/meridian-chain/eventcore/pkg/types"
)

func newTestArchive(t *testing.T) *storage.Archive {
	t.Helper()
	a, err := storage.NewArchive("")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func archivedEvent(seed string, slot types.Slot, readOnly bool, index uint64, withBlock bool) event.OutputEvent {
	ctx := event.ExecutionContext{
		Slot:        slot,
		ReadOnly:    readOnly,
		IndexInSlot: index,
		CallStack: []types.Address{
			types.NewAddress(hash.Compute([]byte(seed + "-caller"))),
			types.NewAddress(hash.Compute([]byte(seed + "-emitter"))),
		},
	}
	if withBlock {
		b := types.NewBlockID(hash.Compute([]byte(seed + "-block")))
		ctx.Block = &b
	}
	return event.OutputEvent{
		ID:      event.NewID(hash.Compute([]byte(seed))),
		Context: ctx,
		Data:    `{"seed":"` + seed + `"}`,
	}
}

func TestArchiveInsertAndGet(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	ev := archivedEvent("a", types.NewSlot(7, 3), false, 2, true)
	require.NoError(t, a.InsertEvents(ctx, []event.OutputEvent{ev}))

	got, err := a.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.True(t, ev.Context.Equal(got.Context))
	assert.Equal(t, ev.Data, got.Data)
}

func TestArchiveNullBlockRoundTrip(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	ev := archivedEvent("miss", types.NewSlot(1, 0), false, 0, false)
	require.NoError(t, a.InsertEvents(ctx, []event.OutputEvent{ev}))

	got, err := a.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Context.Block)
}

func TestArchiveQuerySlotRange(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	batch := []event.OutputEvent{
		archivedEvent("e1", types.NewSlot(1, 0), false, 0, true),
		archivedEvent("e2", types.NewSlot(2, 5), false, 0, true),
		archivedEvent("e3", types.NewSlot(2, 5), false, 1, true),
		archivedEvent("e4", types.NewSlot(3, 0), false, 0, true),
	}
	require.NoError(t, a.InsertEvents(ctx, batch))

	got, err := a.QuerySlotRange(ctx, types.NewSlot(2, 0), types.NewSlot(3, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, batch[1].ID, got[0].ID)
	assert.Equal(t, batch[2].ID, got[1].ID)
}

func TestArchiveCountBySlot(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	slot := types.NewSlot(4, 1)
	require.NoError(t, a.InsertEvents(ctx, []event.OutputEvent{
		archivedEvent("c1", slot, false, 0, true),
		archivedEvent("c2", slot, false, 1, true),
		archivedEvent("r1", slot, true, 0, false),
	}))

	committed, readOnly, err := a.CountBySlot(ctx, slot)
	require.NoError(t, err)
	assert.Equal(t, int64(2), committed)
	assert.Equal(t, int64(1), readOnly)
}

func TestArchivePruneBefore(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.InsertEvents(ctx, []event.OutputEvent{
		archivedEvent("p1", types.NewSlot(1, 0), false, 0, true),
		archivedEvent("p2", types.NewSlot(2, 0), false, 0, true),
		archivedEvent("p3", types.NewSlot(3, 0), false, 0, true),
	}))

	removed, err := a.PruneBefore(ctx, types.NewSlot(3, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := a.QuerySlotRange(ctx, types.NewSlot(0, 0), types.NewSlot(100, 0))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestArchiveRejectsDuplicatePosition(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	slot := types.NewSlot(9, 9)
	require.NoError(t, a.InsertEvents(ctx, []event.OutputEvent{
		archivedEvent("d1", slot, false, 0, true),
	}))

	// Same (slot, read_only, index) with a different identity violates the
	// archive's uniqueness constraint.
	err := a.InsertEvents(ctx, []event.OutputEvent{
		archivedEvent("d2", slot, false, 0, true),
	})
	assert.Error(t, err)
}
