package db

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures everything that differs between storage backends.
// Queries are written with "?" placeholders and passed through Rebind.
type Dialect interface {
	Name() string
	Rebind(query string) string

	// LockItem takes an exclusive lock covering the item's assignment rows for
	// the rest of tx. It reports false if the item does not exist.
	LockItem(ctx context.Context, tx *sql.Tx, itemID int64) (bool, error)

	// LockLocation locks the location row for the rest of tx. A shared lock
	// keeps the location from being deleted. An exclusive lock waits for every
	// shared holder to finish. It reports false if the location does not exist.
	LockLocation(ctx context.Context, tx *sql.Tx, locationID int64, exclusive bool) (bool, error)

	// SnapshotOptions returns the options for a read-only transaction that
	// sees a single consistent snapshot.
	SnapshotOptions() *sql.TxOptions

	Schema() string
	Migrations() []string

	IsRetryable(err error) bool
	IsUniqueViolation(err error) bool
	IsForeignKeyViolation(err error) bool
}

// SQLite is the dialect for modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string { return DriverSQLite }

func (SQLite) Rebind(query string) string { return query }

// LockItem performs a no-op write on the item row. The first write in a
// SQLite transaction takes the database write lock, waiting up to
// busy_timeout, so writers for any item are serialized from here on.
func (SQLite) LockItem(ctx context.Context, tx *sql.Tx, itemID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE items SET updated_at = updated_at WHERE id = ?`, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockLocation checks that the location exists. A shared lock needs nothing
// more because LockItem already holds the database write lock. An exclusive
// lock is taken with a no-op write.
func (SQLite) LockLocation(ctx context.Context, tx *sql.Tx, locationID int64, exclusive bool) (bool, error) {
	if exclusive {
		res, err := tx.ExecContext(ctx, `UPDATE locations SET name = name WHERE id = ?`, locationID)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return rowExists(tx.QueryRowContext(ctx, `SELECT id FROM locations WHERE id = ?`, locationID))
}

// SnapshotOptions returns nil: a deferred SQLite transaction reads from one
// WAL snapshot taken at its first read.
func (SQLite) SnapshotOptions() *sql.TxOptions { return nil }

func (SQLite) Schema() string { return sqliteSchema }

func (SQLite) Migrations() []string { return sqliteMigrations }

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func (SQLite) IsRetryable(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func (SQLite) IsUniqueViolation(err error) bool {
	code, ok := sqliteCode(err)
	return ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func (SQLite) IsForeignKeyViolation(err error) bool {
	code, ok := sqliteCode(err)
	return ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// Postgres is the dialect for Postgres through pgx.
type Postgres struct{}

func (Postgres) Name() string { return DriverPostgres }

// Rebind rewrites "?" placeholders to "$1", "$2", ...
func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LockItem row-locks the item. Transfers for other items are not blocked.
func (Postgres) LockItem(ctx context.Context, tx *sql.Tx, itemID int64) (bool, error) {
	return rowExists(tx.QueryRowContext(ctx, `SELECT id FROM items WHERE id = $1 FOR UPDATE`, itemID))
}

// LockLocation takes FOR SHARE or FOR UPDATE on the location row. Transfers
// into one location share the lock, a delete waits for all of them.
func (Postgres) LockLocation(ctx context.Context, tx *sql.Tx, locationID int64, exclusive bool) (bool, error) {
	mode := "FOR SHARE"
	if exclusive {
		mode = "FOR UPDATE"
	}
	return rowExists(tx.QueryRowContext(ctx, `SELECT id FROM locations WHERE id = $1 `+mode, locationID))
}

func rowExists(row *sql.Row) (bool, error) {
	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (Postgres) SnapshotOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (Postgres) Schema() string { return postgresSchema }

func (Postgres) Migrations() []string { return postgresMigrations }

// SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func (Postgres) IsRetryable(err error) bool {
	switch pgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation:
		return true
	}
	return false
}

func (Postgres) IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func (Postgres) IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}
