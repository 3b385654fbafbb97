package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-seating/internal/model"
)

const chairColumns = `id, id_table, number, status, created_at, updated_at`

func scanChair(s rowScanner) (*model.Chair, error) {
	var c model.Chair
	if err := s.Scan(&c.ID, &c.TableID, &c.Number, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// collectChairs drains rows into a slice and closes them.
func collectChairs(rows *sql.Rows) ([]model.Chair, error) {
	defer rows.Close()
	out := []model.Chair{}
	for rows.Next() {
		c, err := scanChair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const qChairsByTable = `SELECT ` + chairColumns + ` FROM chairs WHERE id_table = ? ORDER BY number, id`

// ChairsByTable returns the chairs of a table ordered by chair number.
// An unknown table yields an empty slice.
func (s *SQLStore) ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error) {
	rows, err := s.db.QueryContext(ctx, qChairsByTable, tableID)
	if err != nil {
		return nil, err
	}
	return collectChairs(rows)
}

// GetChair retrieves a chair by id.
func (s *SQLStore) GetChair(ctx context.Context, id uint64) (*model.Chair, error) {
	c, err := scanChair(s.db.QueryRowContext(ctx, `SELECT `+chairColumns+` FROM chairs WHERE id = ?`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return c, nil
}

// ChairsByTable is the in-transaction variant used right after chairs are
// bulk inserted, so the generated ids are visible to the caller.
func (t *sqlTx) ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error) {
	rows, err := t.tx.QueryContext(ctx, qChairsByTable, tableID)
	if err != nil {
		return nil, err
	}
	return collectChairs(rows)
}

// ChairForUpdate reads a chair and locks its row until the transaction ends.
func (t *sqlTx) ChairForUpdate(ctx context.Context, id uint64) (*model.Chair, error) {
	c, err := scanChair(t.tx.QueryRowContext(ctx, `SELECT `+chairColumns+` FROM chairs WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return c, nil
}

// InsertChairs inserts multiple chairs in a single statement.  Generated
// ids are not written back; read them with ChairsByTable.
func (t *sqlTx) InsertChairs(ctx context.Context, chairs []model.Chair) error {
	if len(chairs) == 0 {
		return nil
	}
	now := utcNow()
	var b strings.Builder
	b.WriteString(`INSERT INTO chairs (id_table, number, status, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(chairs)*5)
	for i, c := range chairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, c.TableID, c.Number, c.Status, now, now)
	}
	_, err := t.tx.ExecContext(ctx, b.String(), args...)
	return mapWriteErr(err)
}

// SetChairStatus persists a chair status.  The caller holds the row lock.
func (t *sqlTx) SetChairStatus(ctx context.Context, id uint64, status model.ChairStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE chairs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// DeleteChairsByTable removes every chair of a table and reports how many
// rows were deleted.
func (t *sqlTx) DeleteChairsByTable(ctx context.Context, tableID uint64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM chairs WHERE id_table = ?`, tableID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
