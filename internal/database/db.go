package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes the MySQL connection.
type Options struct {
	User, Pass, Host, Port, Name string
	// LockWaitSeconds becomes the session innodb_lock_wait_timeout so a
	// blocked row lock fails the transaction instead of hanging it.
	LockWaitSeconds int
}

// DSN builds the driver connection string.
func (o Options) DSN() string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, o.Port)
	c.DBName = o.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	c.ParseTime = true
	c.Loc = time.UTC
	// Report matched rather than changed rows so idempotent status
	// updates still count as hits.
	c.ClientFoundRows = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	if o.LockWaitSeconds > 0 {
		c.Params["innodb_lock_wait_timeout"] = strconv.Itoa(o.LockWaitSeconds)
	}
	return c.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
