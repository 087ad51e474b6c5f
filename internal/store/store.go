// Package store persists the registries and the assignment ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/lokator/internal/clock"
	"github.com/erazemk/lokator/internal/db"
	"github.com/erazemk/lokator/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the entry point to persistent state. Its embedded View reads
// outside of any transaction; callbacks given to InItemTx and InSnapshot must
// use the View or Ledger they are handed instead.
type Store struct {
	*View

	DB      *sql.DB
	Dialect db.Dialect
	Clock   clock.Clock
}

// New returns a Store. A nil clock means the real clock.
func New(database *sql.DB, d db.Dialect, c clock.Clock) *Store {
	if c == nil {
		c = clock.Real{}
	}
	return &Store{View: &View{q: database, d: d}, DB: database, Dialect: d, Clock: c}
}

func (s *Store) rebind(query string) string {
	return s.Dialect.Rebind(query)
}

// insert runs an INSERT ... RETURNING id statement and returns the new id.
func insert(ctx context.Context, q querier, d db.Dialect, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, d.Rebind(query+` RETURNING id`), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InItemTx runs fn inside a transaction that holds the lock on one item's
// assignments. The transaction commits if fn returns nil and rolls back
// otherwise. A missing item yields model.ErrItemNotFound. Failures caused by
// concurrent writers are reported as model.ErrConcurrencyConflict.
func (s *Store) InItemTx(ctx context.Context, itemID int64, fn func(*Ledger) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return s.classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	found, err := s.Dialect.LockItem(ctx, tx, itemID)
	if err != nil {
		return s.classify(fmt.Errorf("locking item %d: %w", itemID, err))
	}
	if !found {
		return model.ErrItemNotFound
	}

	l := &Ledger{View: View{q: tx, d: s.Dialect}, tx: tx, clock: s.Clock}
	if err := fn(l); err != nil {
		return s.classify(err)
	}

	if err := tx.Commit(); err != nil {
		return s.classify(fmt.Errorf("committing: %w", err))
	}
	return nil
}

// InSnapshot runs read-only fn against one consistent snapshot.
func (s *Store) InSnapshot(ctx context.Context, fn func(*View) error) error {
	tx, err := s.DB.BeginTx(ctx, s.Dialect.SnapshotOptions())
	if err != nil {
		return fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&View{q: tx, d: s.Dialect}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) classify(err error) error {
	if err == nil || errors.Is(err, model.ErrConcurrencyConflict) {
		return err
	}
	if s.Dialect.IsRetryable(err) {
		return fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
	}
	return err
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
