package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-seating/internal/model"
)

const clientColumns = `id, fullname, ci, phone_number, created_at, updated_at`

func scanClient(s rowScanner) (*model.Client, error) {
	var c model.Client
	if err := s.Scan(&c.ID, &c.Fullname, &c.CI, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectClients(rows *sql.Rows) ([]model.Client, error) {
	defer rows.Close()
	out := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
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

// ListClients returns all clients ordered by id.
func (s *SQLStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

// SearchClients matches term against fullname and ci.  LIKE wildcards in
// the term are escaped so they match literally.
func (s *SQLStore) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE fullname LIKE ? OR ci LIKE ? ORDER BY fullname, id`,
		pattern, pattern)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetClient retrieves a client by id.
func (s *SQLStore) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return c, nil
}

// ClientForUpdate reads a client and locks its row.
func (t *sqlTx) ClientForUpdate(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := scanClient(t.tx.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return c, nil
}

// InsertClient inserts a client and populates its ID and timestamps.  A
// repeated CI yields ErrDuplicate.
func (t *sqlTx) InsertClient(ctx context.Context, c *model.Client) error {
	now := utcNow()
	const q = `INSERT INTO clients (fullname, ci, phone_number, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, c.Fullname, c.CI, c.PhoneNumber, now, now)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// UpdateClient overwrites fullname, ci and phone_number.
func (t *sqlTx) UpdateClient(ctx context.Context, c *model.Client) error {
	now := utcNow()
	const q = `UPDATE clients SET fullname = ?, ci = ?, phone_number = ?, updated_at = ? WHERE id = ?`
	if _, err := t.tx.ExecContext(ctx, q, c.Fullname, c.CI, c.PhoneNumber, now, c.ID); err != nil {
		return mapWriteErr(err)
	}
	c.UpdatedAt = now
	return nil
}

// DeleteClient removes a client row.
func (t *sqlTx) DeleteClient(ctx context.Context, id uint64) error {
	return requireAffected(t.tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id))
}
