package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/lokator/internal/model"
)

// CreateAssociation links a child item to a parent item.
func (s *Store) CreateAssociation(ctx context.Context, parentID, childID int64) (*model.Association, error) {
	if parentID == childID {
		return nil, fmt.Errorf("item cannot be associated with itself: %w", model.ErrInvalidInput)
	}

	id, err := insert(ctx, s.DB, s.Dialect,
		`INSERT INTO item_associations (parent_item_id, child_item_id) VALUES (?, ?)`, parentID, childID)
	if err != nil {
		switch {
		case s.Dialect.IsUniqueViolation(err):
			return nil, fmt.Errorf("association: %w", model.ErrDuplicate)
		case s.Dialect.IsForeignKeyViolation(err):
			return nil, model.ErrItemNotFound
		}
		return nil, fmt.Errorf("creating association: %w", err)
	}

	return s.Association(ctx, id)
}

// Association returns an association by ID.
func (s *Store) Association(ctx context.Context, id int64) (*model.Association, error) {
	a := &model.Association{}
	err := s.DB.QueryRowContext(ctx, s.rebind(associationSelect+` WHERE a.id = ?`), id).
		Scan(&a.ID, &a.ParentItemID, &a.ChildItemID, &a.ParentName, &a.ChildName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrAssociationNotFound
		}
		return nil, fmt.Errorf("getting association: %w", err)
	}
	return a, nil
}

// DeleteAssociation removes an association.
func (s *Store) DeleteAssociation(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM item_associations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting association: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrAssociationNotFound
	}
	return nil
}
