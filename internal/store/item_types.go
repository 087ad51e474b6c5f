package store

import (
	"context"
	"fmt"

	"github.com/erazemk/lokator/internal/model"
)

// CreateItemType creates a new item type.
func (s *Store) CreateItemType(ctx context.Context, name string) (*model.ItemType, error) {
	id, err := insert(ctx, s.DB, s.Dialect, `INSERT INTO item_types (name) VALUES (?)`, name)
	if err != nil {
		if s.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("item type %q: %w", name, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("creating item type: %w", err)
	}
	return s.ItemType(ctx, id)
}

// RenameItemType changes an item type's name.
func (s *Store) RenameItemType(ctx context.Context, id int64, name string) (*model.ItemType, error) {
	res, err := s.DB.ExecContext(ctx, s.rebind(`UPDATE item_types SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		if s.Dialect.IsUniqueViolation(err) {
			return nil, fmt.Errorf("item type %q: %w", name, model.ErrDuplicate)
		}
		return nil, fmt.Errorf("updating item type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrItemTypeNotFound
	}
	return s.ItemType(ctx, id)
}

// DeleteItemType deletes an item type that no item references.
func (s *Store) DeleteItemType(ctx context.Context, id int64) error {
	var count int
	err := s.DB.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM items WHERE item_type_id = ?`), id).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting items of type: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("item type used by %d items: %w", count, model.ErrInUse)
	}

	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM item_types WHERE id = ?`), id)
	if err != nil {
		if s.Dialect.IsForeignKeyViolation(err) {
			return fmt.Errorf("item type: %w", model.ErrInUse)
		}
		return fmt.Errorf("deleting item type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrItemTypeNotFound
	}
	return nil
}
