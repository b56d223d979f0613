// Package storage opens the SQL database shared by the event store, the
// group repository, idempotency keys and operator diagnostics, and hides
// the few differences between PostgreSQL and SQLite they care about.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

var ErrUnknownDriver = errors.New("storage: unknown database driver")

// Dialect carries the per-driver details of query text and error codes.
type Dialect struct {
	Name string
}

var placeholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $n placeholders into the driver's bind syntax. Queries
// are written for PostgreSQL and must use their placeholders in order.
func (d Dialect) Rebind(query string) string {
	if d.Name == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure.
func (d Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database and pings it. For SQLite the dsn is a file
// path; its directory is created when missing.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		path, params, _ := strings.Cut(dsn, "?")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		if params == "" {
			dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer keeps SQLite from returning SQLITE_BUSY under concurrent appends
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", driver, err)
	}
	return &DB{DB: db, Dialect: Dialect{Name: driver}}, nil
}
