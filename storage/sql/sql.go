// Package sql provides SQL-backed implementations of storage.Storage,
// supporting Postgres (via lib/pq) and SQLite (via mattn/go-sqlite3).
package sql

import (
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// flavor captures the handful of ways Postgres and SQLite diverge for the
// queries this package issues: bind-parameter syntax and how a
// serializable transaction is opened and retried on conflict.
type flavor struct {
	name        string
	bindRewrite func(query string) string
	executeTx   func(db *sql.DB, fn func(*sql.Tx) error) error
}

func isSerializationFailure(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code.Name() == "serialization_failure"
}

// Config selects and opens a concrete SQL storage.
type Config struct {
	Driver string // "postgres" or "sqlite3"
	DSN    string
}

// DB wraps a *sql.DB with the flavor needed to translate bind parameters
// and to run compound operations with the right isolation and retry
// semantics.
type DB struct {
	db     *sql.DB
	flavor flavor
	logger *slog.Logger
}

// Open connects to the configured database and creates any missing
// tables and indexes (see migrate.go).
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	var f flavor
	switch cfg.Driver {
	case "postgres":
		f = flavorPostgres
	case "sqlite3":
		f = flavorSQLite
	default:
		sqlDB.Close()
		return nil, &UnsupportedDriverError{Driver: cfg.Driver}
	}

	d := &DB{db: sqlDB, flavor: f, logger: logger}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// UnsupportedDriverError is returned by Open for a driver registered with
// database/sql other than "postgres" or "sqlite3". A driver name that is
// not registered at all fails earlier, in sql.Open.
type UnsupportedDriverError struct{ Driver string }

func (e *UnsupportedDriverError) Error() string {
	return "sql: unsupported driver " + e.Driver
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) q(query string) string { return d.flavor.bindRewrite(query) }
