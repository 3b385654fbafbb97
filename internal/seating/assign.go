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

// Assign seats a client on a chair of the given table.  The chair and
// table statuses are updated in the same transaction as the new
// assignment row.
func (e *Engine) Assign(ctx context.Context, clientID, chairID, tableID uint64) (*model.Assignment, error) {
	var out *model.Assignment
	err := e.mutate(ctx, "assign", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		tables, err := lockTables(ctx, tx, tableID)
		if err != nil {
			return nil, err
		}
		a, ts, err := assignLocked(ctx, tx, tables[tableID], clientID, chairID)
		if err != nil {
			return nil, err
		}
		out = a
		return &queue.SeatingEvent{
			Type:         queue.EventAssigned,
			AssignmentID: a.ID,
			ClientID:     a.ClientID,
			ChairID:      a.ChairID,
			TableID:      a.TableID,
			TableStatus:  ts.String(),
			ChairStatus:  model.ChairOccupied.String(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// assignLocked runs the assign steps once the target table row is locked.
func assignLocked(ctx context.Context, tx repository.Tx, table *model.Table, clientID, chairID uint64) (*model.Assignment, model.TableStatus, error) {
	chair, err := tx.ChairForUpdate(ctx, chairID)
	if err != nil {
		return nil, 0, lookupErr("chair", chairID, err)
	}
	if chair.TableID != table.ID {
		return nil, 0, fmt.Errorf("%w: chair %d does not belong to table %d", ErrInconsistent, chairID, table.ID)
	}
	if _, err := tx.ClientForUpdate(ctx, clientID); err != nil {
		return nil, 0, lookupErr("client", clientID, err)
	}

	switch cur, err := tx.AssignmentByChair(ctx, chairID); {
	case err == nil:
		return nil, 0, fmt.Errorf("%w: chair %d is held by assignment %d", ErrAlreadyOccupied, chairID, cur.ID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, 0, storageFailure("check chair", err)
	}

	a := &model.Assignment{ClientID: clientID, ChairID: chairID, TableID: table.ID}
	if err := tx.InsertAssignment(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, 0, fmt.Errorf("%w: chair %d", ErrAlreadyOccupied, chairID)
		}
		return nil, 0, storageFailure("insert assignment", err)
	}
	if err := tx.SetChairStatus(ctx, chairID, occupancy.ChairStatus(true)); err != nil {
		return nil, 0, storageFailure("update chair status", err)
	}
	ts, err := refreshTable(ctx, tx, table)
	if err != nil {
		return nil, 0, err
	}
	return a, ts, nil
}

// Release removes an assignment and frees its chair.  The table keeps a
// Reserved status; otherwise it becomes Free once no assignment is left.
func (e *Engine) Release(ctx context.Context, assignmentID uint64) error {
	return e.mutate(ctx, "release", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		peek, err := tx.AssignmentByID(ctx, assignmentID)
		if err != nil {
			return nil, lookupErr("assignment", assignmentID, err)
		}
		tables, err := lockTables(ctx, tx, peek.TableID)
		if err != nil {
			return nil, err
		}
		a, ts, err := releaseLocked(ctx, tx, tables[peek.TableID], assignmentID)
		if err != nil {
			return nil, err
		}
		return &queue.SeatingEvent{
			Type:         queue.EventReleased,
			AssignmentID: a.ID,
			ClientID:     a.ClientID,
			ChairID:      a.ChairID,
			TableID:      a.TableID,
			TableStatus:  ts.String(),
			ChairStatus:  model.ChairFree.String(),
		}, nil
	})
}

// releaseLocked deletes an assignment whose table row is already locked.
func releaseLocked(ctx context.Context, tx repository.Tx, table *model.Table, assignmentID uint64) (*model.Assignment, model.TableStatus, error) {
	a, err := tx.AssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, 0, lookupErr("assignment", assignmentID, err)
	}
	if _, err := tx.ChairForUpdate(ctx, a.ChairID); err != nil {
		return nil, 0, lookupErr("chair", a.ChairID, err)
	}
	// Re-read under lock; a concurrent release may have won the race.
	a, err = tx.AssignmentForUpdate(ctx, assignmentID)
	if err != nil {
		return nil, 0, lookupErr("assignment", assignmentID, err)
	}
	if a.TableID != table.ID {
		return nil, 0, fmt.Errorf("%w: assignment %d moved to table %d", ErrInconsistent, a.ID, a.TableID)
	}
	if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
		return nil, 0, lookupErr("assignment", a.ID, err)
	}
	if err := tx.SetChairStatus(ctx, a.ChairID, occupancy.ChairStatus(false)); err != nil {
		return nil, 0, storageFailure("update chair status", err)
	}
	ts, err := refreshTable(ctx, tx, table)
	if err != nil {
		return nil, 0, err
	}
	return a, ts, nil
}

// Reassign moves the client of an existing assignment to another chair.
// The release and the new assignment commit together or not at all, so
// no caller ever observes the client unseated or seated twice.
func (e *Engine) Reassign(ctx context.Context, assignmentID, chairID, tableID uint64) (*model.Assignment, error) {
	var out *model.Assignment
	err := e.mutate(ctx, "reassign", func(tx repository.Tx) (*queue.SeatingEvent, error) {
		peek, err := tx.AssignmentByID(ctx, assignmentID)
		if err != nil {
			return nil, lookupErr("assignment", assignmentID, err)
		}
		tables, err := lockTables(ctx, tx, peek.TableID, tableID)
		if err != nil {
			return nil, err
		}
		old, _, err := releaseLocked(ctx, tx, tables[peek.TableID], assignmentID)
		if err != nil {
			return nil, err
		}
		a, ts, err := assignLocked(ctx, tx, tables[tableID], old.ClientID, chairID)
		if err != nil {
			return nil, err
		}
		out = a
		return &queue.SeatingEvent{
			Type:            queue.EventReassigned,
			AssignmentID:    a.ID,
			ClientID:        a.ClientID,
			ChairID:         a.ChairID,
			TableID:         a.TableID,
			PreviousChairID: old.ChairID,
			PreviousTableID: old.TableID,
			TableStatus:     ts.String(),
			ChairStatus:     model.ChairOccupied.String(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// refreshTable recomputes the status of a locked table from the current
// assignment count and persists it.  table.Status is updated in place so
// a later step of the same transaction sees the new value.
func refreshTable(ctx context.Context, tx repository.Tx, table *model.Table) (model.TableStatus, error) {
	n, err := tx.CountAssignmentsByTable(ctx, table.ID)
	if err != nil {
		return 0, storageFailure("count assignments", err)
	}
	status := occupancy.TableStatus(table.Status, n)
	if err := tx.SetTableStatus(ctx, table.ID, status); err != nil {
		return 0, storageFailure("update table status", err)
	}
	table.Status = status
	return status, nil
}
