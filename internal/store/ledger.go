package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/lokator/internal/clock"
	"github.com/erazemk/lokator/internal/model"
)

// Ledger is write access to one item's assignments. It is only handed out by
// Store.InItemTx, which holds the item lock for its lifetime.
type Ledger struct {
	View
	tx    *sql.Tx
	clock clock.Clock
}

// LockLocation holds a shared lock on the location until the transaction
// ends, so it cannot be deleted while an assignment to it is opened.
func (l *Ledger) LockLocation(ctx context.Context, locationID int64) error {
	found, err := l.d.LockLocation(ctx, l.tx, locationID, false)
	if err != nil {
		return fmt.Errorf("locking location %d: %w", locationID, err)
	}
	if !found {
		return model.ErrLocationNotFound
	}
	return nil
}

// Close ends an active assignment. A closed record is model.ErrAlreadyClosed.
func (l *Ledger) Close(ctx context.Context, recordID int64) (*model.Assignment, error) {
	rec, err := l.Record(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.Active() {
		return nil, model.ErrAlreadyClosed
	}

	now := l.clock.Now()
	res, err := l.q.ExecContext(ctx,
		l.d.Rebind(`UPDATE assignments SET removed_at = ? WHERE id = ? AND removed_at IS NULL`), now, recordID)
	if err != nil {
		return nil, fmt.Errorf("closing assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrAlreadyClosed
	}
	rec.RemovedAt = &now
	return rec, nil
}

// CloseOthers closes every active assignment of itemID except keepID and
// returns how many were closed.
func (l *Ledger) CloseOthers(ctx context.Context, itemID, keepID int64) (int64, error) {
	res, err := l.q.ExecContext(ctx,
		l.d.Rebind(`UPDATE assignments SET removed_at = ? WHERE item_id = ? AND id <> ? AND removed_at IS NULL`),
		l.clock.Now(), itemID, keepID)
	if err != nil {
		return 0, fmt.Errorf("closing other assignments: %w", err)
	}
	return res.RowsAffected()
}

// OpenOrReactivate makes the (itemID, locationID) record active. An active
// record is left untouched, a closed one is reopened with a fresh assigned_at,
// and a new record is created if the item was never at the location. Callers
// close the item's other active records first.
func (l *Ledger) OpenOrReactivate(ctx context.Context, itemID, locationID int64) (*model.Assignment, model.Placement, error) {
	rec, err := l.PairRecord(ctx, itemID, locationID)
	if err != nil {
		return nil, "", err
	}
	if rec != nil && rec.Active() {
		return rec, model.PlacementAlreadyThere, nil
	}

	now := l.clock.Now()
	if rec != nil {
		_, err := l.q.ExecContext(ctx,
			l.d.Rebind(`UPDATE assignments SET assigned_at = ?, removed_at = NULL WHERE id = ?`), now, rec.ID)
		if err != nil {
			return nil, "", fmt.Errorf("reactivating assignment: %w", err)
		}
		rec.AssignedAt = now
		rec.RemovedAt = nil
		return rec, model.PlacementReactivated, nil
	}

	id, err := insert(ctx, l.q, l.d,
		`INSERT INTO assignments (item_id, location_id, assigned_at) VALUES (?, ?, ?)`, itemID, locationID, now)
	if err != nil {
		if l.d.IsForeignKeyViolation(err) {
			return nil, "", model.ErrLocationNotFound
		}
		return nil, "", fmt.Errorf("creating assignment: %w", err)
	}
	created, err := l.Record(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return created, model.PlacementCreated, nil
}

// VerifySingleActive fails with model.ErrInvariantViolation unless itemID has
// at most one active assignment.
func (l *Ledger) VerifySingleActive(ctx context.Context, itemID int64) error {
	_, err := l.ActiveForItem(ctx, itemID)
	return err
}
