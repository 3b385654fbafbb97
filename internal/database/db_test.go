package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	dsn := Options{User: "seat", Pass: "s3cret", Host: "db", Port: "3306", Name: "venue", LockWaitSeconds: 4}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "venue", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, "4", cfg.Params["innodb_lock_wait_timeout"])
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- c\nCREATE TABLE a (\n id INT\n);\n\nCREATE TABLE b (id INT);\n")
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.NotContains(t, stmts[0], ";")
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
}

func TestSchemaDeclaresSeatingTables(t *testing.T) {
	stmts := splitStatements(schema)
	require.Len(t, stmts, 6)
	assert.Contains(t, stmts[3], "UNIQUE KEY uq_assigned_chair (id_chair)")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range splitStatements(schema) {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tables").WillReturnError(errors.New("denied"))
	err = Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "migrate statement 1")
}
