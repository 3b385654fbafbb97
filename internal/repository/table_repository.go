package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-seating/internal/model"
)

const tableColumns = `id, number, chair_quantity, status, created_at, updated_at`

func scanTable(s rowScanner) (*model.Table, error) {
	var t model.Table
	if err := s.Scan(&t.ID, &t.Number, &t.ChairQuantity, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTables returns every table ordered by number.
func (s *SQLStore) ListTables(ctx context.Context) ([]model.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTable retrieves a table by id.  It returns ErrNotFound when no row matches.
func (s *SQLStore) GetTable(ctx context.Context, id uint64) (*model.Table, error) {
	t, err := scanTable(s.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = ?`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return t, nil
}

// TableForUpdate reads a table and locks its row until the transaction ends.
func (t *sqlTx) TableForUpdate(ctx context.Context, id uint64) (*model.Table, error) {
	tb, err := scanTable(t.tx.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return tb, nil
}

// MaxTableNumber returns the highest table number, or 0 on an empty store.
// The read locks the index range so two concurrent creations cannot pick
// the same number.
func (t *sqlTx) MaxTableNumber(ctx context.Context) (uint32, error) {
	var n sql.NullInt64
	if err := t.tx.QueryRowContext(ctx, `SELECT MAX(number) FROM tables FOR UPDATE`).Scan(&n); err != nil {
		return 0, err
	}
	if !n.Valid {
		return 0, nil
	}
	return uint32(n.Int64), nil
}

// InsertTable inserts a table and populates its ID and timestamps.
func (t *sqlTx) InsertTable(ctx context.Context, tb *model.Table) error {
	now := utcNow()
	const q = `INSERT INTO tables (number, chair_quantity, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, tb.Number, tb.ChairQuantity, tb.Status, now, now)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tb.ID = uint64(id)
	tb.CreatedAt, tb.UpdatedAt = now, now
	return nil
}

// SetTableStatus persists a table status.  The caller holds the row lock.
func (t *sqlTx) SetTableStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE tables SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// SetChairQuantity persists a table's chair quantity.  Chairs are not
// added or removed.
func (t *sqlTx) SetChairQuantity(ctx context.Context, id uint64, quantity uint32) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE tables SET chair_quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, quantity, id)
	return err
}

// DeleteTable removes the table row.  Chairs and assignments must already
// be gone; the foreign keys reject the delete otherwise.
func (t *sqlTx) DeleteTable(ctx context.Context, id uint64) error {
	return requireAffected(t.tx.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id))
}
