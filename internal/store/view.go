package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/lokator/internal/db"
	"github.com/erazemk/lokator/internal/model"
)

// View is read access to the registries and the ledger. Inside InSnapshot or
// InItemTx every read sees the same transaction.
type View struct {
	q querier
	d db.Dialect
}

type scanner interface {
	Scan(dest ...any) error
}

// ItemType returns an item type by ID.
func (v *View) ItemType(ctx context.Context, id int64) (*model.ItemType, error) {
	t := &model.ItemType{}
	err := v.q.QueryRowContext(ctx, v.d.Rebind(`SELECT id, name FROM item_types WHERE id = ?`), id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item type: %w", err)
	}
	return t, nil
}

// ItemTypeByName returns an item type by its unique name.
func (v *View) ItemTypeByName(ctx context.Context, name string) (*model.ItemType, error) {
	t := &model.ItemType{}
	err := v.q.QueryRowContext(ctx, v.d.Rebind(`SELECT id, name FROM item_types WHERE name = ?`), name).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item type by name: %w", err)
	}
	return t, nil
}

// ItemTypes returns all item types ordered by name.
func (v *View) ItemTypes(ctx context.Context) ([]model.ItemType, error) {
	rows, err := v.q.QueryContext(ctx, `SELECT id, name FROM item_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing item types: %w", err)
	}
	defer rows.Close()

	var types []model.ItemType
	for rows.Next() {
		var t model.ItemType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning item type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

const locationColumns = `id, name, description, created_at`

func scanLocation(s scanner) (*model.Location, error) {
	l := &model.Location{}
	var description sql.NullString
	if err := s.Scan(&l.ID, &l.Name, &description, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Description = description.String
	return l, nil
}

// Location returns a location by ID.
func (v *View) Location(ctx context.Context, id int64) (*model.Location, error) {
	l, err := scanLocation(v.q.QueryRowContext(ctx,
		v.d.Rebind(`SELECT `+locationColumns+` FROM locations WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// Locations returns all locations ordered by name.
func (v *View) Locations(ctx context.Context) ([]model.Location, error) {
	rows, err := v.q.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

const itemSelect = `SELECT i.id, i.name, i.item_type_id, t.name, i.serial_number, i.inventory_number,
       i.description, i.purchase_date, i.cost, i.is_active, i.photo_mime, i.created_at, i.updated_at
FROM items i
JOIN item_types t ON t.id = i.item_type_id`

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var serial, invNumber, description, purchaseDate, photoMime sql.NullString
	err := s.Scan(&item.ID, &item.Name, &item.ItemTypeID, &item.ItemTypeName, &serial, &invNumber,
		&description, &purchaseDate, &item.Cost, &item.IsActive, &photoMime, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.SerialNumber = serial.String
	item.InventoryNumber = invNumber.String
	item.Description = description.String
	item.PurchaseDate = purchaseDate.String
	item.PhotoMime = photoMime.String
	return item, nil
}

// Item returns an item by ID.
func (v *View) Item(ctx context.Context, id int64) (*model.Item, error) {
	item, err := scanItem(v.q.QueryRowContext(ctx, v.d.Rebind(itemSelect+` WHERE i.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// Items returns items ordered by name. A non-empty search matches the name or
// serial number, case-insensitively.
func (v *View) Items(ctx context.Context, search string) ([]model.Item, error) {
	query := itemSelect
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE LOWER(i.name) LIKE ? OR LOWER(COALESCE(i.serial_number, '')) LIKE ?`
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY i.name, i.id`

	rows, err := v.q.QueryContext(ctx, v.d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

const associationSelect = `SELECT a.id, a.parent_item_id, a.child_item_id, p.name, c.name
FROM item_associations a
JOIN items p ON p.id = a.parent_item_id
JOIN items c ON c.id = a.child_item_id`

// Associations returns associations, optionally only those involving itemID.
func (v *View) Associations(ctx context.Context, itemID int64) ([]model.Association, error) {
	query := associationSelect
	var args []any
	if itemID > 0 {
		query += ` WHERE a.parent_item_id = ? OR a.child_item_id = ?`
		args = append(args, itemID, itemID)
	}
	query += ` ORDER BY a.parent_item_id, a.child_item_id`

	rows, err := v.q.QueryContext(ctx, v.d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing associations: %w", err)
	}
	defer rows.Close()

	var out []model.Association
	for rows.Next() {
		var a model.Association
		if err := rows.Scan(&a.ID, &a.ParentItemID, &a.ChildItemID, &a.ParentName, &a.ChildName); err != nil {
			return nil, fmt.Errorf("scanning association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const assignmentSelect = `SELECT a.id, a.item_id, a.location_id, a.assigned_at, a.removed_at, i.name, l.name
FROM assignments a
JOIN items i ON i.id = a.item_id
JOIN locations l ON l.id = a.location_id`

func scanAssignment(s scanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	if err := s.Scan(&a.ID, &a.ItemID, &a.LocationID, &a.AssignedAt, &a.RemovedAt, &a.ItemName, &a.LocationName); err != nil {
		return nil, err
	}
	return a, nil
}

func (v *View) queryAssignments(ctx context.Context, where string, args ...any) ([]model.Assignment, error) {
	rows, err := v.q.QueryContext(ctx, v.d.Rebind(assignmentSelect+` `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Record returns an assignment by ID.
func (v *View) Record(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := scanAssignment(v.q.QueryRowContext(ctx, v.d.Rebind(assignmentSelect+` WHERE a.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return a, nil
}

// PairRecord returns the assignment for (itemID, locationID), active or
// closed, or nil if the item was never at that location.
func (v *View) PairRecord(ctx context.Context, itemID, locationID int64) (*model.Assignment, error) {
	a, err := scanAssignment(v.q.QueryRowContext(ctx,
		v.d.Rebind(assignmentSelect+` WHERE a.item_id = ? AND a.location_id = ?`), itemID, locationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment pair: %w", err)
	}
	return a, nil
}

// ActiveForItem returns the item's active assignment, or nil if the item is
// unassigned. More than one active assignment is model.ErrInvariantViolation.
func (v *View) ActiveForItem(ctx context.Context, itemID int64) (*model.Assignment, error) {
	active, err := v.queryAssignments(ctx, `WHERE a.item_id = ? AND a.removed_at IS NULL`, itemID)
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return &active[0], nil
	default:
		return nil, fmt.Errorf("item %d has %d active assignments: %w", itemID, len(active), model.ErrInvariantViolation)
	}
}

// ActiveForLocation returns the active assignments at a location.
func (v *View) ActiveForLocation(ctx context.Context, locationID int64) ([]model.Assignment, error) {
	return v.queryAssignments(ctx,
		`WHERE a.location_id = ? AND a.removed_at IS NULL ORDER BY a.assigned_at DESC, a.id DESC`, locationID)
}

// History returns every assignment of an item, newest assignment first.
func (v *View) History(ctx context.Context, itemID int64) ([]model.Assignment, error) {
	return v.queryAssignments(ctx, `WHERE a.item_id = ? ORDER BY a.assigned_at DESC, a.id DESC`, itemID)
}

// Assignments returns every assignment in the ledger, grouped by location and
// newest first within a location.
func (v *View) Assignments(ctx context.Context) ([]model.Assignment, error) {
	return v.queryAssignments(ctx, `ORDER BY a.location_id, a.assigned_at DESC, a.id DESC`)
}

// CountAssignments counts the assignments at a location. With activeOnly set
// only current occupants are counted.
func (v *View) CountAssignments(ctx context.Context, locationID int64, activeOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM assignments WHERE location_id = ?`
	if activeOnly {
		query += ` AND removed_at IS NULL`
	}
	var n int
	if err := v.q.QueryRowContext(ctx, v.d.Rebind(query), locationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting assignments: %w", err)
	}
	return n, nil
}
