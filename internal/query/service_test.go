package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
	"github.com/iliyamo/venue-seating/internal/seating"
)

type plan struct {
	svc    *Service
	table  *model.Table
	chairs []model.Chair
	byNum  map[uint32]*model.Assignment
}

// seedPlan seats guests on chairs 4, 1 and 3 of a five chair table, in
// that order, so insertion order differs from chair order.
func seedPlan(t *testing.T) *plan {
	t.Helper()
	store := repository.NewMemoryStore()
	e := seating.New(store)
	ctx := context.Background()

	table, chairs, err := e.CreateTable(ctx, 5, false)
	require.NoError(t, err)
	p := &plan{svc: New(store), table: table, chairs: chairs, byNum: map[uint32]*model.Assignment{}}
	for i, num := range []uint32{4, 1, 3} {
		c, err := e.CreateClient(ctx, seating.ClientInput{
			Fullname:    []string{"Lucia Vargas", "Pedro Rojas", "Ines Quispe"}[i],
			CI:          []string{"4400001", "4400002", "4400003"}[i],
			PhoneNumber: []string{"7000000001", "7000000002", "7100000003"}[i],
		})
		require.NoError(t, err)
		a, err := e.Assign(ctx, c.ID, chairs[num-1].ID, table.ID)
		require.NoError(t, err)
		p.byNum[num] = a
	}
	return p
}

func TestAssignmentsByTable_OrderedByChairNumber(t *testing.T) {
	p := seedPlan(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := p.svc.AssignmentsByTable(ctx, p.table.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, p.byNum[1].ID, got[0].ID)
		assert.Equal(t, p.byNum[3].ID, got[1].ID)
		assert.Equal(t, p.byNum[4].ID, got[2].ID)
	}
}

func TestAssignmentsByChair(t *testing.T) {
	p := seedPlan(t)
	ctx := context.Background()

	got, err := p.svc.AssignmentsByChair(ctx, p.chairs[2].ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.byNum[3].ID, got[0].ID)

	got, err = p.svc.AssignmentsByChair(ctx, p.chairs[1].ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMissingRelationsYieldEmpty(t *testing.T) {
	svc := New(repository.NewMemoryStore())
	ctx := context.Background()

	byTable, err := svc.AssignmentsByTable(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{}, byTable)

	chairs, err := svc.ChairsByTable(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, []model.Chair{}, chairs)

	all, err := svc.ListAssignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.AssignmentDetail{}, all)
}

func TestListAssignments_JoinsDetails(t *testing.T) {
	p := seedPlan(t)
	got, err := p.svc.ListAssignments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, uint32(1), first.Chair.Number)
	assert.Equal(t, p.table.Number, first.Table.Number)
	assert.Equal(t, "Pedro Rojas", first.Client.Fullname)
}

func TestGetTable(t *testing.T) {
	p := seedPlan(t)
	ctx := context.Background()

	view, err := p.svc.GetTable(ctx, p.table.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, view.Status)
	require.Len(t, view.Chairs, 5)
	for i, c := range view.Chairs {
		assert.Equal(t, uint32(i+1), c.Number)
	}

	_, err = p.svc.GetTable(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.svc.GetAssignment(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.svc.GetClient(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchClients(t *testing.T) {
	p := seedPlan(t)
	ctx := context.Background()

	got, err := p.svc.SearchClients(ctx, "rojas")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "4400002", got[0].CI)

	got, err = p.svc.SearchClients(ctx, "0003")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ines Quispe", got[0].Fullname)

	got, err = p.svc.SearchClients(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
