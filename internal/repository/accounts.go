package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/utils"
)

// Users is the operator account store used by the auth and user
// management endpoints.  Emails are stored lower-cased and trimmed.
type Users interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// Update overwrites email, role and active flag.  A non-empty
	// Password is re-hashed with cost.
	Update(ctx context.Context, id uint64, u UserUpdate, cost int) error
	Delete(ctx context.Context, id uint64) error
}

// UserUpdate carries the editable fields of an operator.
type UserUpdate struct {
	Email    string
	Role     string
	IsActive bool
	Password string // empty keeps the current password
}

// SeedAdmin creates an ADMIN operator with the given credentials unless
// the email is already registered.  It reports whether a user was created.
func SeedAdmin(ctx context.Context, users Users, email, password string, cost int) (bool, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return false, nil
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := users.Create(ctx, email, password, model.RoleAdmin, cost); err != nil {
		if errors.Is(err, ErrEmailExists) {
			// registered but inactive
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Tokens stores hashed refresh tokens.
type Tokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

var (
	_ Users  = (*UserRepo)(nil)
	_ Tokens = (*TokenRepo)(nil)
	_ Users  = (*MemoryAccounts)(nil)
	_ Tokens = (*MemoryAccounts)(nil)
)

// MemoryAccounts keeps users and refresh tokens in process.  It backs
// DB_DRIVER=memory and handler tests.
type MemoryAccounts struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	tokens map[string]model.RefreshToken
	nextID uint64
}

// NewMemoryAccounts returns an empty account store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{users: map[uint64]model.User{}, tokens: map[string]model.RefreshToken{}}
}

// Create implements Users.Create.
func (m *MemoryAccounts) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, ErrEmailExists
		}
	}
	m.nextID++
	now := utcNow()
	m.users[m.nextID] = model.User{
		ID: m.nextID, Email: email, PasswordHash: hash, Role: role, IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	return m.nextID, nil
}

// GetByEmail returns the active user with the given email.
func (m *MemoryAccounts) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// GetByID returns the user regardless of its active flag.
func (m *MemoryAccounts) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// StoreRefresh records a refresh token hash for userID.
func (m *MemoryAccounts) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tokenHash]; ok {
		return ErrDuplicate
	}
	m.tokens[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: utcNow()}
	return nil
}

// ValidateRefresh returns the owner of an unrevoked, unexpired token.
func (m *MemoryAccounts) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, ErrNotFound
	}
	return t.UserID, nil
}

// RevokeByHash marks one token revoked.  Unknown hashes are ignored.
func (m *MemoryAccounts) RevokeByHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := utcNow()
		t.RevokedAt = &now
		m.tokens[tokenHash] = t
	}
	return nil
}

// RevokeAllForUser revokes every live token of userID.
func (m *MemoryAccounts) RevokeAllForUser(ctx context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := utcNow()
	for h, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.tokens[h] = t
		}
	}
	return nil
}

// List returns every user ordered by id.
func (m *MemoryAccounts) List(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update implements Users.Update.
func (m *MemoryAccounts) Update(ctx context.Context, id uint64, in UserUpdate, cost int) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var hash string
	if in.Password != "" {
		h, err := utils.HashPassword(in.Password, cost)
		if err != nil {
			return err
		}
		hash = h
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range m.users {
		if other.ID != id && other.Email == email {
			return ErrEmailExists
		}
	}
	u.Email, u.Role, u.IsActive = email, in.Role, in.IsActive
	if hash != "" {
		u.PasswordHash = hash
	}
	u.UpdatedAt = utcNow()
	m.users[id] = u
	return nil
}

// Delete removes the user and its refresh tokens.
func (m *MemoryAccounts) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for h, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, h)
		}
	}
	return nil
}
