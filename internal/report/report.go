// Package report answers read-only questions about where items are and where
// they have been. Every call reads from a single snapshot of the ledger.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// Reader builds report projections.
type Reader struct {
	store *store.Store
}

// New creates a Reader.
func New(s *store.Store) *Reader {
	return &Reader{store: s}
}

// ItemSummary is an item as it appears inside location reports.
type ItemSummary struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number"`
	ItemType     string     `json:"item_type"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
}

// LocationOccupancy lists the items currently at a location.
type LocationOccupancy struct {
	LocationID  int64         `json:"location_id"`
	Location    string        `json:"location"`
	Description string        `json:"description"`
	Items       []ItemSummary `json:"items"`
}

// LocationAudit lists every item a location has held, split into current
// and former occupants.
type LocationAudit struct {
	LocationID   int64         `json:"location_id"`
	Location     string        `json:"location"`
	Description  string        `json:"description"`
	ActiveItems  []ItemSummary `json:"active_items"`
	RemovedItems []ItemSummary `json:"removed_items"`
	ActiveCount  int           `json:"active_count"`
	RemovedCount int           `json:"removed_count"`
}

// TypeStats aggregates active items of one type.
type TypeStats struct {
	ItemType  string          `json:"item_type"`
	Count     int             `json:"count"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// LocationStats counts the active assignments at one location.
type LocationStats struct {
	LocationID       int64  `json:"location_id"`
	Name             string `json:"name"`
	ActiveItemsCount int    `json:"active_items_count"`
}

// Stats summarises the whole inventory.
type Stats struct {
	TotalItems      int             `json:"total_items"`
	ActiveItems     int             `json:"active_items"`
	ItemsByType     []TypeStats     `json:"items_by_type"`
	ItemsByLocation []LocationStats `json:"items_by_location"`
}

// InventoryRow is one item with its current placement, as exported.
type InventoryRow struct {
	Item       model.Item
	Location   string
	AssignedAt *time.Time
}

// CurrentLocation returns where the item is now, or nil if it is unassigned.
func (r *Reader) CurrentLocation(ctx context.Context, itemID int64) (*model.Location, error) {
	var loc *model.Location
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		if _, err := v.Item(ctx, itemID); err != nil {
			return err
		}
		active, err := v.ActiveForItem(ctx, itemID)
		if err != nil || active == nil {
			return err
		}
		loc, err = v.Location(ctx, active.LocationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// History returns every assignment of the item, newest first.
func (r *Reader) History(ctx context.Context, itemID int64) ([]model.Assignment, error) {
	var history []model.Assignment
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		if _, err := v.Item(ctx, itemID); err != nil {
			return err
		}
		var err error
		history, err = v.History(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNil(history), nil
}

// Occupants returns the items currently at a location.
func (r *Reader) Occupants(ctx context.Context, locationID int64) ([]model.Item, error) {
	var items []model.Item
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		if _, err := v.Location(ctx, locationID); err != nil {
			return err
		}
		active, err := v.ActiveForLocation(ctx, locationID)
		if err != nil {
			return err
		}
		for _, a := range active {
			item, err := v.Item(ctx, a.ItemID)
			if err != nil {
				return err
			}
			items = append(items, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// Occupancy lists the current occupants of every location.
func (r *Reader) Occupancy(ctx context.Context) ([]LocationOccupancy, error) {
	var out []LocationOccupancy
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		snap, err := load(ctx, v)
		if err != nil {
			return err
		}
		for _, loc := range snap.locations {
			occ := LocationOccupancy{
				LocationID:  loc.ID,
				Location:    loc.Name,
				Description: loc.Description,
				Items:       []ItemSummary{},
			}
			for _, a := range snap.byLocation[loc.ID] {
				if a.Active() {
					occ.Items = append(occ.Items, snap.summary(a, false))
				}
			}
			out = append(out, occ)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// FullAudit lists current and former occupants of every location.
func (r *Reader) FullAudit(ctx context.Context) ([]LocationAudit, error) {
	var out []LocationAudit
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		snap, err := load(ctx, v)
		if err != nil {
			return err
		}
		for _, loc := range snap.locations {
			audit := LocationAudit{
				LocationID:   loc.ID,
				Location:     loc.Name,
				Description:  loc.Description,
				ActiveItems:  []ItemSummary{},
				RemovedItems: []ItemSummary{},
			}
			for _, a := range snap.byLocation[loc.ID] {
				if a.Active() {
					audit.ActiveItems = append(audit.ActiveItems, snap.summary(a, true))
				} else {
					audit.RemovedItems = append(audit.RemovedItems, snap.summary(a, true))
				}
			}
			audit.ActiveCount = len(audit.ActiveItems)
			audit.RemovedCount = len(audit.RemovedItems)
			out = append(out, audit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Stats counts items overall, by type and by location. Type statistics cover
// items flagged active; a missing cost counts as zero.
func (r *Reader) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ItemsByType: []TypeStats{}, ItemsByLocation: []LocationStats{}}
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		snap, err := load(ctx, v)
		if err != nil {
			return err
		}

		stats.TotalItems = len(snap.items)

		assigned := make(map[int64]bool)
		for _, loc := range snap.locations {
			ls := LocationStats{LocationID: loc.ID, Name: loc.Name}
			for _, a := range snap.byLocation[loc.ID] {
				if a.Active() {
					ls.ActiveItemsCount++
					assigned[a.ItemID] = true
				}
			}
			stats.ItemsByLocation = append(stats.ItemsByLocation, ls)
		}
		stats.ActiveItems = len(assigned)

		types, err := v.ItemTypes(ctx)
		if err != nil {
			return err
		}
		byType := make(map[int64]*TypeStats, len(types))
		for _, t := range types {
			byType[t.ID] = &TypeStats{ItemType: t.Name, TotalCost: decimal.Zero}
		}
		for _, item := range snap.items {
			if !item.IsActive {
				continue
			}
			ts := byType[item.ItemTypeID]
			ts.Count++
			if item.Cost.Valid {
				ts.TotalCost = ts.TotalCost.Add(item.Cost.Decimal)
			}
		}
		for _, t := range types {
			if ts := byType[t.ID]; ts.Count > 0 {
				stats.ItemsByType = append(stats.ItemsByType, *ts)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Inventory returns every item with its current location, ordered by item ID.
func (r *Reader) Inventory(ctx context.Context) ([]InventoryRow, error) {
	var rows []InventoryRow
	err := r.store.InSnapshot(ctx, func(v *store.View) error {
		snap, err := load(ctx, v)
		if err != nil {
			return err
		}
		current := make(map[int64]model.Assignment)
		for _, a := range snap.assignments {
			if a.Active() {
				current[a.ItemID] = a
			}
		}
		for _, item := range snap.items {
			row := InventoryRow{Item: item}
			if a, ok := current[item.ID]; ok {
				row.Location = a.LocationName
				assignedAt := a.AssignedAt
				row.AssignedAt = &assignedAt
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByID(rows)
	return rows, nil
}
