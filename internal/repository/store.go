package repository

import (
	"context"

	"github.com/iliyamo/venue-seating/internal/model"
)

// Store is the entity store used by the seating engine and the query
// layer.  All mutations go through WithTx; the embedded Reader serves
// read-only lookups at the store's default read consistency.
type Store interface {
	Reader
	// WithTx runs fn inside a single transaction.  The transaction is
	// committed when fn returns nil and rolled back otherwise, so no
	// partial state of a failed call is ever visible.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Reader groups the read-only lookups.  Missing relations yield empty
// slices; single-row lookups return ErrNotFound.
type Reader interface {
	ListTables(ctx context.Context) ([]model.Table, error)
	GetTable(ctx context.Context, id uint64) (*model.Table, error)
	GetChair(ctx context.Context, id uint64) (*model.Chair, error)
	ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	SearchClients(ctx context.Context, term string) ([]model.Client, error)
	GetClient(ctx context.Context, id uint64) (*model.Client, error)
	ListAssignments(ctx context.Context) ([]model.AssignmentDetail, error)
	GetAssignment(ctx context.Context, id uint64) (*model.AssignmentDetail, error)
	AssignmentsByTable(ctx context.Context, tableID uint64) ([]model.Assignment, error)
	AssignmentsByChair(ctx context.Context, chairID uint64) ([]model.Assignment, error)
}

// Tx is the set of operations available inside a transaction.  The
// ForUpdate finders take a row lock that is held until the transaction
// ends; callers lock tables before chairs and chairs before assignments.
type Tx interface {
	TableForUpdate(ctx context.Context, id uint64) (*model.Table, error)
	ChairForUpdate(ctx context.Context, id uint64) (*model.Chair, error)
	ClientForUpdate(ctx context.Context, id uint64) (*model.Client, error)
	AssignmentByID(ctx context.Context, id uint64) (*model.Assignment, error)
	AssignmentForUpdate(ctx context.Context, id uint64) (*model.Assignment, error)
	// AssignmentByChair returns the active assignment on a chair or
	// ErrNotFound when the chair is free.
	AssignmentByChair(ctx context.Context, chairID uint64) (*model.Assignment, error)
	AssignmentsByClient(ctx context.Context, clientID uint64) ([]model.Assignment, error)
	CountAssignmentsByTable(ctx context.Context, tableID uint64) (int, error)
	ChairsByTable(ctx context.Context, tableID uint64) ([]model.Chair, error)
	MaxTableNumber(ctx context.Context) (uint32, error)

	InsertAssignment(ctx context.Context, a *model.Assignment) error
	DeleteAssignment(ctx context.Context, id uint64) error
	SetChairStatus(ctx context.Context, id uint64, status model.ChairStatus) error
	SetTableStatus(ctx context.Context, id uint64, status model.TableStatus) error
	SetChairQuantity(ctx context.Context, id uint64, quantity uint32) error

	InsertTable(ctx context.Context, t *model.Table) error
	InsertChairs(ctx context.Context, chairs []model.Chair) error
	DeleteAssignmentsByTable(ctx context.Context, tableID uint64) (int64, error)
	DeleteChairsByTable(ctx context.Context, tableID uint64) (int64, error)
	DeleteTable(ctx context.Context, id uint64) error

	InsertClient(ctx context.Context, c *model.Client) error
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, id uint64) error
}
