// Package sqlite owns the application database: connection pools, the declarative schema migration and periodic
// housekeeping.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/aitrainer/internal/errors"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds two pools on the same file. ReadWrite has a single connection so that writers never contend for
// the lock. ReadOnly serves concurrent readers.
//
// See https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger

	// stopHousekeeping ends the housekeeping loop, which closes housekeepingDone on return.
	stopHousekeeping context.CancelFunc
	housekeepingDone chan struct{}
}

// NewDatabase connects to url, migrates it to schema.sql and starts the housekeeping loop, which stops with ctx or
// Close.
//
// url is a file path or ":memory:" for a throwaway database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect", slog.String("url", url))
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	var hkCtx context.Context
	hkCtx, db.stopHousekeeping = context.WithCancel(ctx)
	db.housekeepingDone = make(chan struct{})
	go func() {
		defer close(db.housekeepingDone)
		db.housekeeping(hkCtx)
	}()
	return db, nil
}

const driverName = "sqlite3tuned"

//nolint:gochecknoglobals // sql.Register panics when called twice.
var registerDriver sync.Once

// tunedDriver runs pragmas that cannot be expressed in the DSN on every new connection.
func tunedDriver() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			pragmas := strings.Join([]string{
				// Keep temporary tables and indices in memory.
				"PRAGMA temp_store = memory",
				// Memory mapped I/O saves read syscalls.
				"PRAGMA mmap_size = 30000000000",
				// Litestream does the checkpointing.
				"PRAGMA wal_autocheckpoint = 0",
			}, ";")
			if _, err := conn.Exec(pragmas, nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	})
}

// dsn builds a data source name. Options without underscore are SQLite URI parameters
// (https://www.sqlite.org/uri.html), the ones with are go-sqlite3 options
// (https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open).
func dsn(file string, readOnly bool, inMemory bool) string {
	opts := []string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}
	if readOnly {
		opts = append(opts, "mode=ro", "_txlock=deferred", "_query_only=true")
	} else {
		opts = append(opts, "mode=rwc", "_txlock=immediate")
	}
	if inMemory {
		// Both pools must see the same in-memory database.
		opts = append(opts, "mode=memory", "cache=shared")
	}
	return "file:" + file + "?" + strings.Join(opts, "&")
}

func openPool(ctx context.Context, dataSource string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(maxConns)
	pool.SetMaxIdleConns(maxConns)
	pool.SetConnMaxLifetime(time.Hour)
	pool.SetConnMaxIdleTime(time.Hour)
	// sql.Open is lazy, ping to surface configuration errors now.
	if err = pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	const maxReaders = 10

	inMemory := strings.Contains(url, ":memory:")
	if inMemory {
		// A random name isolates parallel tests from each other.
		url = rand.Text()
	}
	registerDriver.Do(tunedDriver)

	readWriteDSN := dsn(url, false, inMemory)
	readWrite, err := openPool(ctx, readWriteDSN, 1)
	if err != nil {
		return nil, fmt.Errorf("read-write pool: %w", err)
	}
	// The e2e test harness picks the DSN up from this log line.
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	readOnly, err := openPool(ctx, dsn(url, true, inMemory), maxReaders)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("read-only pool: %w", err), readWrite.Close())
	}

	return &Database{ReadWrite: readWrite, ReadOnly: readOnly, logger: logger}, nil
}

// Close stops the housekeeping loop, waits for it to return and closes both pools. Nothing is logged after Close
// returns.
func (db *Database) Close() error {
	if db.stopHousekeeping != nil {
		db.stopHousekeeping()
		<-db.housekeepingDone
	}
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
