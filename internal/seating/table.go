package seating

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/occupancy"
	"github.com/iliyamo/venue-seating/internal/queue"
	"github.com/iliyamo/venue-seating/internal/repository"
)

// Bounds on the number of chairs a table can be created with.
const (
	MinChairs = 1
	MaxChairs = 11
)

// tableNumberAttempts bounds how often CreateTable picks a new number
// after losing a race for the previous one.
const tableNumberAttempts = 3

// TableUpdate carries the independently settable fields of a table.  Nil
// fields are left unchanged.
type TableUpdate struct {
	ChairQuantity *int
	Status        *model.TableStatus
}

// CreateTable creates a table numbered one past the current maximum
// together with chairs 1..quantity, all Free.
func (e *Engine) CreateTable(ctx context.Context, quantity int, reserved bool) (*model.Table, []model.Chair, error) {
	if quantity < MinChairs || quantity > MaxChairs {
		return nil, nil, fmt.Errorf("%w: chair quantity must be between %d and %d", ErrInvalid, MinChairs, MaxChairs)
	}
	var (
		table  *model.Table
		chairs []model.Chair
	)
	err := e.mutate(ctx, "create_table", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		t, err := insertNextTable(ctx, tx, quantity, reserved)
		if err != nil {
			return nil, err
		}
		batch := make([]model.Chair, quantity)
		for i := range batch {
			batch[i] = model.Chair{TableID: t.ID, Number: uint32(i + 1), Status: occupancy.ChairStatus(false)}
		}
		if err := tx.InsertChairs(ctx, batch); err != nil {
			return nil, storageFailure("insert chairs", err)
		}
		cs, err := tx.ChairsByTable(ctx, t.ID)
		if err != nil {
			return nil, storageFailure("load chairs", err)
		}
		table, chairs = t, cs
		return &queue.SeatingEvent{Type: queue.EventTableCreated, TableID: t.ID, TableStatus: t.Status.String()}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return table, chairs, nil
}

// insertNextTable inserts a table numbered one past the current maximum.
// The maximum is not gap locked at READ COMMITTED, so a concurrent
// creation can take the same number first; the unique key rejects the
// loser, which re-reads the maximum and tries again.
func insertNextTable(ctx context.Context, tx repository.Tx, quantity int, reserved bool) (*model.Table, error) {
	status := model.TableFree
	if reserved {
		status = model.TableReserved
	}
	for attempt := 1; ; attempt++ {
		last, err := tx.MaxTableNumber(ctx)
		if err != nil {
			return nil, storageFailure("next table number", err)
		}
		t := &model.Table{Number: last + 1, ChairQuantity: uint32(quantity), Status: status}
		err = tx.InsertTable(ctx, t)
		switch {
		case err == nil:
			return t, nil
		case !errors.Is(err, repository.ErrDuplicate):
			return nil, storageFailure("insert table", err)
		case attempt >= tableNumberAttempts:
			return nil, fmt.Errorf("%w: table number %d was taken concurrently, try again", ErrInvalid, t.Number)
		}
	}
}

// ReserveTable marks a table Reserved.  Chairs and assignments are left
// untouched.
func (e *Engine) ReserveTable(ctx context.Context, tableID uint64) error {
	return e.mutate(ctx, "reserve_table", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		if _, err := reserveLocked(ctx, tx, tableID); err != nil {
			return nil, err
		}
		return &queue.SeatingEvent{Type: queue.EventTableReserved, TableID: tableID, TableStatus: model.TableReserved.String()}, nil
	})
}

// UnreserveTable lifts a manual reservation.  The table becomes Occupied
// or Free depending on its current assignments.
func (e *Engine) UnreserveTable(ctx context.Context, tableID uint64) error {
	return e.mutate(ctx, "unreserve_table", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		status, err := unreserveLocked(ctx, tx, tableID)
		if err != nil {
			return nil, err
		}
		return &queue.SeatingEvent{Type: queue.EventTableUnreserved, TableID: tableID, TableStatus: status.String()}, nil
	})
}

// UpdateTable applies the non-nil fields of u in one transaction and
// returns the resulting table.  ChairQuantity is recorded as metadata;
// existing chairs are neither added nor removed.  A Reserved status
// reserves the table, any other status lifts the reservation and lets
// the assignments decide.
func (e *Engine) UpdateTable(ctx context.Context, tableID uint64, u TableUpdate) (*model.Table, error) {
	if u.ChairQuantity != nil && (*u.ChairQuantity < MinChairs || *u.ChairQuantity > MaxChairs) {
		return nil, fmt.Errorf("%w: chair quantity must be between %d and %d", ErrInvalid, MinChairs, MaxChairs)
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown table status %d", ErrInvalid, *u.Status)
	}
	var out *model.Table
	err := e.mutate(ctx, "update_table", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		t, err := tx.TableForUpdate(ctx, tableID)
		if err != nil {
			return nil, lookupErr("table", tableID, err)
		}
		if u.ChairQuantity != nil {
			if err := tx.SetChairQuantity(ctx, tableID, uint32(*u.ChairQuantity)); err != nil {
				return nil, storageFailure("update chair quantity", err)
			}
			t.ChairQuantity = uint32(*u.ChairQuantity)
		}
		if u.Status != nil {
			if *u.Status == model.TableReserved {
				t, err = reserveLocked(ctx, tx, tableID)
			} else {
				t.Status, err = unreserveLocked(ctx, tx, tableID)
			}
			if err != nil {
				return nil, err
			}
		}
		out = t
		return &queue.SeatingEvent{Type: queue.EventTableUpdated, TableID: tableID, TableStatus: t.Status.String()}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func reserveLocked(ctx context.Context, tx repository.Tx, tableID uint64) (*model.Table, error) {
	t, err := tx.TableForUpdate(ctx, tableID)
	if err != nil {
		return nil, lookupErr("table", tableID, err)
	}
	if err := tx.SetTableStatus(ctx, tableID, model.TableReserved); err != nil {
		return nil, storageFailure("reserve table", err)
	}
	t.Status = model.TableReserved
	return t, nil
}

func unreserveLocked(ctx context.Context, tx repository.Tx, tableID uint64) (model.TableStatus, error) {
	if _, err := tx.TableForUpdate(ctx, tableID); err != nil {
		return 0, lookupErr("table", tableID, err)
	}
	n, err := tx.CountAssignmentsByTable(ctx, tableID)
	if err != nil {
		return 0, storageFailure("count assignments", err)
	}
	status := occupancy.Unreserve(n)
	if err := tx.SetTableStatus(ctx, tableID, status); err != nil {
		return 0, storageFailure("update table status", err)
	}
	return status, nil
}

// DeleteTable removes a table together with its chairs and every
// assignment seated on them.
func (e *Engine) DeleteTable(ctx context.Context, tableID uint64) error {
	return e.mutate(ctx, "delete_table", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		if _, err := lockTables(ctx, tx, tableID); err != nil {
			return nil, err
		}
		released, err := tx.DeleteAssignmentsByTable(ctx, tableID)
		if err != nil {
			return nil, storageFailure("delete assignments", err)
		}
		if _, err := tx.DeleteChairsByTable(ctx, tableID); err != nil {
			return nil, storageFailure("delete chairs", err)
		}
		if err := tx.DeleteTable(ctx, tableID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("table", tableID)
			}
			return nil, storageFailure("delete table", err)
		}
		return &queue.SeatingEvent{Type: queue.EventTableDeleted, TableID: tableID, Released: released}, nil
	})
}
