package store

import (
	"context"
	"fmt"

	"github.com/erazemk/lokator/internal/model"
)

// CreateLocation creates a new location.
func (s *Store) CreateLocation(ctx context.Context, name, description string) (*model.Location, error) {
	id, err := insert(ctx, s.DB, s.Dialect,
		`INSERT INTO locations (name, description, created_at) VALUES (?, ?, ?)`,
		name, nullString(description), s.Clock.Now(),
	)
	if err != nil {
		if s.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("location %q: %w", name, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("creating location: %w", err)
	}
	return s.Location(ctx, id)
}

// UpdateLocation changes a location's name and description. The name is frozen
// once any assignment references the location, so history keeps reading the
// same place name.
func (s *Store) UpdateLocation(ctx context.Context, id int64, name, description string) (*model.Location, error) {
	current, err := s.Location(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != current.Name {
		n, err := s.CountAssignments(ctx, id, false)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("renaming location referenced by %d assignments: %w", n, model.ErrInUse)
		}
	}

	_, err = s.DB.ExecContext(ctx,
		s.rebind(`UPDATE locations SET name = ?, description = ? WHERE id = ?`),
		name, nullString(description), id,
	)
	if err != nil {
		if s.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("location %q: %w", name, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("updating location: %w", err)
	}
	return s.Location(ctx, id)
}

// DeleteLocation deletes a location without active occupants. Its closed
// assignments are deleted with it. The location is locked first so a transfer
// into it either finishes before the occupancy check or sees it gone.
func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return s.classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	found, err := s.Dialect.LockLocation(ctx, tx, id, true)
	if err != nil {
		return s.classify(fmt.Errorf("locking location %d: %w", id, err))
	}
	if !found {
		return model.ErrLocationNotFound
	}

	res, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM locations WHERE id = ? AND NOT EXISTS (
			SELECT 1 FROM assignments WHERE location_id = ? AND removed_at IS NULL)`), id, id)
	if err != nil {
		return s.classify(fmt.Errorf("deleting location: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("location has active items: %w", model.ErrInUse)
	}

	if err := tx.Commit(); err != nil {
		return s.classify(fmt.Errorf("committing: %w", err))
	}
	return nil
}
