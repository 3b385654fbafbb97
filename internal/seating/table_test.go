package seating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
)

func TestCreateTable_NumbersChairsAndTables(t *testing.T) {
	e := New(repository.NewMemoryStore())
	ctx := context.Background()

	first, chairs, err := e.CreateTable(ctx, 4, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), first.Number)
	assert.Equal(t, uint32(4), first.ChairQuantity)
	assert.Equal(t, model.TableFree, first.Status)
	require.Len(t, chairs, 4)
	for i, c := range chairs {
		assert.Equal(t, uint32(i+1), c.Number)
		assert.Equal(t, model.ChairFree, c.Status)
		assert.Equal(t, first.ID, c.TableID)
	}

	second, _, err := e.CreateTable(ctx, 2, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), second.Number)
	assert.Equal(t, model.TableReserved, second.Status)
}

func TestCreateTable_RetriesTakenNumber(t *testing.T) {
	mem := repository.NewMemoryStore()
	e := New(mem)
	ctx := context.Background()
	_, _, err := e.CreateTable(ctx, 2, false)
	require.NoError(t, err)

	// The first read misses the committed table #1, as a concurrent
	// creation would.
	calls := 0
	fs := &faultyStore{Store: mem, maxTableNumber: func(actual uint32) uint32 {
		calls++
		if calls == 1 {
			return 0
		}
		return actual
	}}
	tb, chairs, err := New(fs).CreateTable(ctx, 3, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tb.Number)
	assert.Len(t, chairs, 3)
	assert.Equal(t, 2, calls)
}

func TestCreateTable_GivesUpOnPersistentContention(t *testing.T) {
	mem := repository.NewMemoryStore()
	ctx := context.Background()
	_, _, err := New(mem).CreateTable(ctx, 2, false)
	require.NoError(t, err)

	fs := &faultyStore{Store: mem, maxTableNumber: func(uint32) uint32 { return 0 }}
	_, _, err = New(fs).CreateTable(ctx, 2, false)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrStorageFailure)

	tables, err := mem.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 1)
}

func TestCreateTable_RejectsQuantity(t *testing.T) {
	e := New(repository.NewMemoryStore())
	for _, q := range []int{0, -1, 12} {
		_, _, err := e.CreateTable(context.Background(), q, false)
		assert.ErrorIs(t, err, ErrInvalid, "quantity %d", q)
	}
}

func TestReserveAndUnreserve(t *testing.T) {
	f := newFixture(t, 3, 1)
	ctx := context.Background()

	require.NoError(t, f.engine.ReserveTable(ctx, f.table.ID))
	assert.Equal(t, model.TableReserved, f.tableStatus(t, f.table.ID))

	// Seating on a reserved table keeps the override.
	_, err := f.engine.Assign(ctx, f.clients[0].ID, f.chairs[0].ID, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableReserved, f.tableStatus(t, f.table.ID))
	assert.Equal(t, model.ChairOccupied, f.chairStatus(t, f.chairs[0].ID))

	require.NoError(t, f.engine.UnreserveTable(ctx, f.table.ID))
	assert.Equal(t, model.TableOccupied, f.tableStatus(t, f.table.ID))

	assert.ErrorIs(t, f.engine.ReserveTable(ctx, 9999), ErrNotFound)
	assert.ErrorIs(t, f.engine.UnreserveTable(ctx, 9999), ErrNotFound)
}

func TestUnreserve_EmptyTableBecomesFree(t *testing.T) {
	e := New(repository.NewMemoryStore())
	ctx := context.Background()
	tb, _, err := e.CreateTable(ctx, 2, true)
	require.NoError(t, err)

	require.NoError(t, e.UnreserveTable(ctx, tb.ID))
	got, err := e.store.GetTable(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, got.Status)
}

func TestUpdateTable(t *testing.T) {
	f := newFixture(t, 4, 1)
	ctx := context.Background()
	_, err := f.engine.Assign(ctx, f.clients[0].ID, f.chairs[0].ID, f.table.ID)
	require.NoError(t, err)

	qty := 6
	reserved := model.TableReserved
	got, err := f.engine.UpdateTable(ctx, f.table.ID, TableUpdate{ChairQuantity: &qty, Status: &reserved})
	require.NoError(t, err)
	assert.Equal(t, uint32(6), got.ChairQuantity)
	assert.Equal(t, model.TableReserved, got.Status)

	chairs, err := f.store.ChairsByTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Len(t, chairs, 4, "quantity edits do not add chairs")

	free := model.TableFree
	got, err = f.engine.UpdateTable(ctx, f.table.ID, TableUpdate{Status: &free})
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, got.Status, "status follows assignments once the override is lifted")
	assert.Equal(t, uint32(6), got.ChairQuantity)
}

func TestUpdateTable_Invalid(t *testing.T) {
	f := newFixture(t, 2, 0)
	ctx := context.Background()

	tooMany := 12
	_, err := f.engine.UpdateTable(ctx, f.table.ID, TableUpdate{ChairQuantity: &tooMany})
	assert.ErrorIs(t, err, ErrInvalid)

	bogus := model.TableStatus(7)
	_, err = f.engine.UpdateTable(ctx, f.table.ID, TableUpdate{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.engine.UpdateTable(ctx, 9999, TableUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTable_Cascades(t *testing.T) {
	f := newFixture(t, 3, 2)
	ctx := context.Background()
	keep, keepChairs, err := f.engine.CreateTable(ctx, 2, false)
	require.NoError(t, err)
	_, err = f.engine.Assign(ctx, f.clients[0].ID, f.chairs[0].ID, f.table.ID)
	require.NoError(t, err)
	_, err = f.engine.Assign(ctx, f.clients[1].ID, keepChairs[0].ID, keep.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteTable(ctx, f.table.ID))

	_, err = f.store.GetTable(ctx, f.table.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	chairs, err := f.store.ChairsByTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Empty(t, chairs)
	for _, c := range f.chairs {
		_, err := f.store.GetChair(ctx, c.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	all, err := f.store.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].TableID)

	// Clients are not cascaded.
	_, err = f.store.GetClient(ctx, f.clients[0].ID)
	assert.NoError(t, err)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, int64(1), last.Released)
	assert.ErrorIs(t, f.engine.DeleteTable(ctx, f.table.ID), ErrNotFound)
}
