package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-seating/internal/model"
)

const assignmentColumns = `a.id, a.id_client, a.id_chair, a.id_table, a.created_at`

func scanAssignment(s rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	if err := s.Scan(&a.ID, &a.ClientID, &a.ChairID, &a.TableID, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	defer rows.Close()
	out := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// qAssignmentDetail joins an assignment with the client, table and chair
// it references.  Callers append a WHERE and ORDER BY clause.
const qAssignmentDetail = `SELECT ` + assignmentColumns + `,
	       cl.id, cl.fullname, cl.ci, cl.phone_number, cl.created_at, cl.updated_at,
	       t.id, t.number, t.chair_quantity, t.status, t.created_at, t.updated_at,
	       c.id, c.id_table, c.number, c.status, c.created_at, c.updated_at
	FROM assigned_chairs a
	JOIN clients cl ON cl.id = a.id_client
	JOIN tables t ON t.id = a.id_table
	JOIN chairs c ON c.id = a.id_chair`

func scanAssignmentDetail(s rowScanner) (*model.AssignmentDetail, error) {
	var d model.AssignmentDetail
	err := s.Scan(
		&d.ID, &d.ClientID, &d.ChairID, &d.TableID, &d.Assignment.CreatedAt,
		&d.Client.ID, &d.Client.Fullname, &d.Client.CI, &d.Client.PhoneNumber, &d.Client.CreatedAt, &d.Client.UpdatedAt,
		&d.Table.ID, &d.Table.Number, &d.Table.ChairQuantity, &d.Table.Status, &d.Table.CreatedAt, &d.Table.UpdatedAt,
		&d.Chair.ID, &d.Chair.TableID, &d.Chair.Number, &d.Chair.Status, &d.Chair.CreatedAt, &d.Chair.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListAssignments returns every assignment with its client, table and
// chair, ordered by table number then chair number.
func (s *SQLStore) ListAssignments(ctx context.Context) ([]model.AssignmentDetail, error) {
	rows, err := s.db.QueryContext(ctx, qAssignmentDetail+` ORDER BY t.number, c.number, a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AssignmentDetail{}
	for rows.Next() {
		d, err := scanAssignmentDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAssignment retrieves one assignment with its joined details.
func (s *SQLStore) GetAssignment(ctx context.Context, id uint64) (*model.AssignmentDetail, error) {
	d, err := scanAssignmentDetail(s.db.QueryRowContext(ctx, qAssignmentDetail+` WHERE a.id = ?`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return d, nil
}

// AssignmentsByTable returns the assignments of a table ordered by chair
// number ascending.
func (s *SQLStore) AssignmentsByTable(ctx context.Context, tableID uint64) ([]model.Assignment, error) {
	const q = `SELECT ` + assignmentColumns + `
	           FROM assigned_chairs a
	           JOIN chairs c ON c.id = a.id_chair
	           WHERE a.id_table = ?
	           ORDER BY c.number, a.id`
	rows, err := s.db.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// AssignmentsByChair returns the assignments of a chair ordered by chair
// number, matching the by-table ordering.
func (s *SQLStore) AssignmentsByChair(ctx context.Context, chairID uint64) ([]model.Assignment, error) {
	const q = `SELECT ` + assignmentColumns + `
	           FROM assigned_chairs a
	           JOIN chairs c ON c.id = a.id_chair
	           WHERE a.id_chair = ?
	           ORDER BY c.number, a.id`
	rows, err := s.db.QueryContext(ctx, q, chairID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// AssignmentByID reads an assignment without locking it.
func (t *sqlTx) AssignmentByID(ctx context.Context, id uint64) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assigned_chairs a WHERE a.id = ?`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

// AssignmentForUpdate reads an assignment and locks its row.
func (t *sqlTx) AssignmentForUpdate(ctx context.Context, id uint64) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assigned_chairs a WHERE a.id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

// AssignmentByChair returns the active assignment on a chair, or
// ErrNotFound when the chair is free.
func (t *sqlTx) AssignmentByChair(ctx context.Context, chairID uint64) (*model.Assignment, error) {
	a, err := scanAssignment(t.tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assigned_chairs a WHERE a.id_chair = ? LIMIT 1 FOR UPDATE`, chairID))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

// AssignmentsByClient returns every assignment held by a client.  The
// rows are not locked; callers lock the affected tables first and read
// again.
func (t *sqlTx) AssignmentsByClient(ctx context.Context, clientID uint64) ([]model.Assignment, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assigned_chairs a WHERE a.id_client = ? ORDER BY a.id`, clientID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// CountAssignmentsByTable counts the assignments of a table.  It must be
// called after the table row is locked so the count is current.
func (t *sqlTx) CountAssignmentsByTable(ctx context.Context, tableID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM assigned_chairs WHERE id_table = ?`, tableID).Scan(&n)
	return n, err
}

// InsertAssignment inserts an assignment and populates its ID.  A second
// assignment on the same chair violates the unique key on id_chair and
// yields ErrDuplicate.
func (t *sqlTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	now := utcNow()
	const q = `INSERT INTO assigned_chairs (id_client, id_chair, id_table, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, a.ClientID, a.ChairID, a.TableID, now, now)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.CreatedAt = now
	return nil
}

// DeleteAssignment removes an assignment row.
func (t *sqlTx) DeleteAssignment(ctx context.Context, id uint64) error {
	return requireAffected(t.tx.ExecContext(ctx, `DELETE FROM assigned_chairs WHERE id = ?`, id))
}

// DeleteAssignmentsByTable removes every assignment that references a
// chair of the table.
func (t *sqlTx) DeleteAssignmentsByTable(ctx context.Context, tableID uint64) (int64, error) {
	const q = `DELETE a FROM assigned_chairs a
	           JOIN chairs c ON c.id = a.id_chair
	           WHERE c.id_table = ? OR a.id_table = ?`
	res, err := t.tx.ExecContext(ctx, q, tableID, tableID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
