package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
)

func seedMemory(t *testing.T) (*MemoryStore, model.Table, []model.Chair, model.Client) {
	t.Helper()
	m := NewMemoryStore()
	var (
		tb     model.Table
		chairs []model.Chair
		cl     model.Client
	)
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		tb = model.Table{Number: 1, ChairQuantity: 2}
		if err := tx.InsertTable(ctx, &tb); err != nil {
			return err
		}
		if err := tx.InsertChairs(ctx, []model.Chair{{TableID: tb.ID, Number: 2}, {TableID: tb.ID, Number: 1}}); err != nil {
			return err
		}
		cl = model.Client{Fullname: "Ana Quispe", CI: "1234567", PhoneNumber: "7000000001"}
		if err := tx.InsertClient(ctx, &cl); err != nil {
			return err
		}
		var err error
		chairs, err = tx.ChairsByTable(ctx, tb.ID)
		return err
	}))
	return m, tb, chairs, cl
}

func TestMemoryStoreFailedTxLeavesNoTrace(t *testing.T) {
	m, tb, chairs, cl := seedMemory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx Tx) error {
		a := &model.Assignment{ClientID: cl.ID, ChairID: chairs[0].ID, TableID: tb.ID}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			return err
		}
		if err := tx.SetChairStatus(ctx, chairs[0].ID, model.ChairOccupied); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	out, err := m.AssignmentsByTable(ctx, tb.ID)
	require.NoError(t, err)
	assert.Empty(t, out)
	c, err := m.GetChair(ctx, chairs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChairFree, c.Status)
}

func TestMemoryStoreChairsOrderedByNumber(t *testing.T) {
	m, tb, chairs, _ := seedMemory(t)
	require.Len(t, chairs, 2)
	assert.Equal(t, uint32(1), chairs[0].Number)

	got, err := m.ChairsByTable(context.Background(), tb.ID)
	require.NoError(t, err)
	assert.Equal(t, chairs, got)

	none, err := m.ChairsByTable(context.Background(), 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStoreUniqueness(t *testing.T) {
	m, tb, chairs, cl := seedMemory(t)
	ctx := context.Background()

	err := m.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertAssignment(ctx, &model.Assignment{ClientID: cl.ID, ChairID: chairs[1].ID, TableID: tb.ID}); err != nil {
			return err
		}
		return tx.InsertAssignment(ctx, &model.Assignment{ClientID: cl.ID, ChairID: chairs[1].ID, TableID: tb.ID})
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = m.WithTx(ctx, func(tx Tx) error {
		return tx.InsertClient(ctx, &model.Client{Fullname: "Other", CI: cl.CI, PhoneNumber: "7000000002"})
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = m.WithTx(ctx, func(tx Tx) error { return tx.DeleteTable(ctx, tb.ID) })
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := m.WithTx(ctx, func(Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryAccountsRefreshLifecycle(t *testing.T) {
	acc := NewMemoryAccounts()
	ctx := context.Background()

	id, err := acc.Create(ctx, " Desk@Venue.test ", "password1", model.RoleStaff, 4)
	require.NoError(t, err)
	_, err = acc.Create(ctx, "desk@venue.test", "password2", model.RoleStaff, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := acc.GetByEmail(ctx, "DESK@venue.test")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	require.NoError(t, acc.StoreRefresh(ctx, id, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, acc.StoreRefresh(ctx, id, "h2", time.Now().Add(-time.Minute)))

	got, err := acc.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	_, err = acc.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrNotFound, "expired")

	require.NoError(t, acc.RevokeAllForUser(ctx, id))
	_, err = acc.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotFound)
}
