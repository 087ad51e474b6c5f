package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/lokator/internal/model"
)

// CreateItem creates a new item.
func (s *Store) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	now := s.Clock.Now()
	id, err := insert(ctx, s.DB, s.Dialect,
		`INSERT INTO items (name, item_type_id, serial_number, inventory_number, description,
		                    purchase_date, cost, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.Name), in.ItemTypeID, nullString(strings.TrimSpace(in.SerialNumber)),
		nullString(strings.TrimSpace(in.InventoryNumber)), nullString(in.Description),
		nullString(in.PurchaseDate), in.Cost, in.Active(), now, now,
	)
	if err != nil {
		return nil, s.itemWriteError("creating item", err)
	}
	return s.Item(ctx, id)
}

// UpdateItem replaces an item's attributes.
func (s *Store) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error) {
	res, err := s.DB.ExecContext(ctx, s.rebind(
		`UPDATE items SET name = ?, item_type_id = ?, serial_number = ?, inventory_number = ?,
		        description = ?, purchase_date = ?, cost = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`),
		strings.TrimSpace(in.Name), in.ItemTypeID, nullString(strings.TrimSpace(in.SerialNumber)),
		nullString(strings.TrimSpace(in.InventoryNumber)), nullString(in.Description),
		nullString(in.PurchaseDate), in.Cost, in.Active(), s.Clock.Now(), id,
	)
	if err != nil {
		return nil, s.itemWriteError("updating item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrItemNotFound
	}
	return s.Item(ctx, id)
}

func (s *Store) itemWriteError(op string, err error) error {
	switch {
	case s.Dialect.IsUniqueViolation(err):
		return fmt.Errorf("%s: serial or inventory number: %w", op, model.ErrDuplicate)
	case s.Dialect.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, model.ErrItemTypeNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DeleteItem deletes an item together with its assignments and associations.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

// SetItemPhoto sets an item's photo data.
func (s *Store) SetItemPhoto(ctx context.Context, id int64, photo []byte, mime string) error {
	res, err := s.DB.ExecContext(ctx,
		s.rebind(`UPDATE items SET photo = ?, photo_mime = ?, updated_at = ? WHERE id = ?`),
		photo, mime, s.Clock.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

// ItemPhoto returns an item's photo data and MIME type. An item without a
// photo returns nil data.
func (s *Store) ItemPhoto(ctx context.Context, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := s.DB.QueryRowContext(ctx,
		s.rebind(`SELECT photo, photo_mime FROM items WHERE id = ?`), id,
	).Scan(&photo, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", model.ErrItemNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}
