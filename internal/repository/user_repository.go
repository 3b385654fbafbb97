package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/utils"
)

// UserRepo persists operator accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

// Create hashes the password with the given bcrypt cost, inserts the user
// and returns its ID.  A taken email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_active=1 LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns every operator ordered by id, inactive ones included.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites email, role and is_active, and the password hash when
// a new password is given.  A taken email yields ErrEmailExists.
func (r *UserRepo) Update(ctx context.Context, id uint64, in UserUpdate, cost int) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	q := "UPDATE users SET email=?, role=?, is_active=?, updated_at=?"
	args := []any{email, in.Role, in.IsActive, utcNow()}
	if in.Password != "" {
		hash, err := utils.HashPassword(in.Password, cost)
		if err != nil {
			return err
		}
		q += ", password_hash=?"
		args = append(args, hash)
	}
	args = append(args, id)
	err := requireAffected(r.DB.ExecContext(ctx, q+" WHERE id=?", args...))
	if errors.Is(err, ErrDuplicate) {
		return ErrEmailExists
	}
	return err
}

// Delete removes an operator.  Refresh tokens go with it through the
// ON DELETE CASCADE foreign key.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return requireAffected(r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	u, err := scanUser(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return u, nil
}

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
