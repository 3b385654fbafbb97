package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo keeps operator refresh tokens.  Only the SHA-256 hash of a
// token is stored, so a leaked table cannot be replayed.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a freshly issued token.  A hash collision with an
// existing row yields ErrDuplicate.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, exp.UTC(), utcNow())
	return mapWriteErr(err)
}

// ValidateRefresh resolves a live token to its user.  Revoked, expired and
// unknown tokens all yield ErrNotFound so callers cannot tell them apart.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?
		 LIMIT 1`,
		tokenHash, time.Now().UTC()).Scan(&userID)
	if err != nil {
		return 0, mapReadErr(err)
	}
	return userID, nil
}

// RevokeByHash revokes one token.  Revoking an unknown or already revoked
// token is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		utcNow(), tokenHash)
	return err
}

// RevokeAllForUser revokes every live token of an operator (logout from
// all devices).
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		utcNow(), userID)
	return err
}
