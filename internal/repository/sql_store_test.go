package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
)

func newMockStore(t *testing.T, opts SQLStoreOptions) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, opts), mock
}

func tableRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "number", "chair_quantity", "status", "created_at", "updated_at"})
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tables WHERE id = ? FOR UPDATE`)).
		WithArgs(7).
		WillReturnRows(tableRows().AddRow(7, 3, 4, 0, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tables SET status = ?`)).
		WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		tb, err := tx.TableForUpdate(context.Background(), 7)
		if err != nil {
			return err
		}
		assert.Equal(t, uint32(3), tb.Number)
		return tx.SetTableStatus(context.Background(), tb.ID, model.TableReserved)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chairs WHERE id = ? FOR UPDATE`)).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.ChairForUpdate(context.Background(), 9)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRetriesDeadlockVictim(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{DeadlockRetries: 1})
	deadlock := &mysql.MySQLError{Number: mysqlErrDeadlock, Message: "Deadlock found when trying to get lock"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE chairs SET status = ?`)).WillReturnError(deadlock)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE chairs SET status = ?`)).
		WithArgs(1, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := s.WithTx(context.Background(), func(tx Tx) error {
		calls++
		return tx.SetChairStatus(context.Background(), 4, model.ChairOccupied)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxGivesUpAfterRetries(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})
	deadlock := &mysql.MySQLError{Number: mysqlErrDeadlock}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assigned_chairs WHERE id = ?`)).WillReturnError(deadlock)
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		return tx.DeleteAssignment(context.Background(), 5)
	})
	assert.True(t, IsDeadlock(err))
	assert.False(t, IsLockTimeout(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAssignmentDuplicateChair(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO assigned_chairs`)).
		WithArgs(1, 2, 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrDuplicateEntry, Message: "Duplicate entry '2' for key 'uq_assigned_chair'"})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertAssignment(context.Background(), &model.Assignment{ClientID: 1, ChairID: 2, TableID: 3})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAssignmentPopulatesID(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO assigned_chairs`)).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	a := &model.Assignment{ClientID: 1, ChairID: 2, TableID: 3}
	require.NoError(t, s.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertAssignment(context.Background(), a)
	}))
	assert.Equal(t, uint64(42), a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestDeleteTableReferenced(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tables WHERE id = ?`)).
		WithArgs(3).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrRowReferenced})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		return tx.DeleteTable(context.Background(), 3)
	})
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestDeleteAssignmentMissingRow(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assigned_chairs WHERE id = ?`)).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx Tx) error {
		return tx.DeleteAssignment(context.Background(), 8)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaxTableNumberEmpty(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(number) FROM tables FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectCommit()

	var n uint32 = 99
	require.NoError(t, s.WithTx(context.Background(), func(tx Tx) error {
		var err error
		n, err = tx.MaxTableNumber(context.Background())
		return err
	}))
	assert.Zero(t, n)
}

func TestInsertChairsSingleStatement(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chairs (id_table, number, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?),(?, ?, ?, ?, ?)`)).
		WithArgs(5, 1, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), 5, 2, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 2))
	mock.ExpectCommit()

	require.NoError(t, s.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertChairs(context.Background(), []model.Chair{{TableID: 5, Number: 1}, {TableID: 5, Number: 2}})
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentsByTableOrdering(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE a.id_table = \?\s+ORDER BY c.number, a.id`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "id_client", "id_chair", "id_table", "created_at"}).
			AddRow(11, 1, 21, 2, now).
			AddRow(10, 2, 23, 2, now))

	out, err := s.AssignmentsByTable(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(21), out[0].ChairID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadsReturnEmptySlices(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})

	mock.ExpectQuery(regexp.QuoteMeta(`FROM chairs WHERE id_table = ?`)).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id", "id_table", "number", "status", "created_at", "updated_at"}))

	chairs, err := s.ChairsByTable(context.Background(), 404)
	require.NoError(t, err)
	assert.NotNil(t, chairs)
	assert.Empty(t, chairs)
}

func TestGetTableNotFound(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tables WHERE id = ?`)).WillReturnRows(tableRows())

	_, err := s.GetTable(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchClientsEscapesWildcards(t *testing.T) {
	s, mock := newMockStore(t, SQLStoreOptions{})
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE fullname LIKE ? OR ci LIKE ?`)).
		WithArgs(`%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "ci", "phone_number", "created_at", "updated_at"}))

	out, err := s.SearchClients(context.Background(), " 50% ")
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapWriteErrPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	assert.Same(t, boom, mapWriteErr(boom))
	assert.NoError(t, mapWriteErr(nil))
}

func TestTokenRepoValidateRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewTokenRepo(db)

	mock.ExpectQuery(`WHERE token_hash = \? AND revoked_at IS NULL AND expires_at > \?`).
		WithArgs("live", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))
	mock.ExpectQuery(`FROM refresh_tokens`).
		WithArgs("gone", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	id, err := r.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	_, err = r.ValidateRefresh(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoStoreDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WithArgs(3, "h", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: mysqlErrDuplicateEntry})

	err = NewTokenRepo(db).StoreRefresh(context.Background(), 3, "h", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrDuplicate)
}
