package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the store reacts to.
const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrRowReferenced  = 1451
	mysqlErrLockWait       = 1205
	mysqlErrDeadlock       = 1213
)

// SQLStoreOptions tunes transaction behaviour of an SQLStore.
type SQLStoreOptions struct {
	// TxTimeout bounds a whole transaction including lock waits.  Zero
	// leaves the caller's context in charge.
	TxTimeout time.Duration
	// DeadlockRetries is how many times a transaction chosen as a
	// deadlock victim is re-run before the error is returned.
	DeadlockRetries int
}

// SQLStore is the MySQL implementation of Store.  Transactions run at
// READ COMMITTED; rows that drive a status decision are read with
// SELECT ... FOR UPDATE so concurrent writers serialize on them.
type SQLStore struct {
	db   *sql.DB
	opts SQLStoreOptions
}

// NewSQLStore returns a Store backed by the given MySQL handle.
func NewSQLStore(db *sql.DB, opts SQLStoreOptions) *SQLStore {
	if opts.DeadlockRetries < 0 {
		opts.DeadlockRetries = 0
	}
	return &SQLStore{db: db, opts: opts}
}

// DB exposes the underlying handle for repositories that live outside
// the seating store (users, refresh tokens).
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithTx implements Store.  A deadlock victim is retried with a short
// linear backoff; every other error is returned as is.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !IsDeadlock(err) || attempt >= s.opts.DeadlockRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
}

func (s *SQLStore) runTx(ctx context.Context, fn func(Tx) error) error {
	if s.opts.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TxTimeout)
		defer cancel()
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// IsDeadlock reports whether err is a MySQL deadlock error.
func IsDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDeadlock
}

// IsLockTimeout reports whether err is a MySQL lock wait timeout.
func IsLockTimeout(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrLockWait
}

// mapWriteErr converts unique key and foreign key violations into
// ErrDuplicate and ErrReferenced.
func mapWriteErr(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlErrDuplicateEntry:
		return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
	case mysqlErrRowReferenced:
		return fmt.Errorf("%w: %s", ErrReferenced, me.Message)
	}
	return err
}

// mapReadErr converts sql.ErrNoRows into ErrNotFound.
func mapReadErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected turns a zero-row update or delete into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlTx implements Tx on top of *sql.Tx.  Its methods are spread over the
// per-entity files next to the matching read queries.
type sqlTx struct {
	tx *sql.Tx
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func utcNow() time.Time { return time.Now().UTC().Truncate(time.Second) }

var (
	_ Store = (*SQLStore)(nil)
	_ Tx    = (*sqlTx)(nil)
)
