package report

import (
	"context"
	"sort"

	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// snapshot is the whole ledger loaded from one view.
type snapshot struct {
	locations   []model.Location
	items       []model.Item
	itemsByID   map[int64]*model.Item
	assignments []model.Assignment
	byLocation  map[int64][]model.Assignment
}

func load(ctx context.Context, v *store.View) (*snapshot, error) {
	locations, err := v.Locations(ctx)
	if err != nil {
		return nil, err
	}
	items, err := v.Items(ctx, "")
	if err != nil {
		return nil, err
	}
	assignments, err := v.Assignments(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		locations:   locations,
		items:       items,
		itemsByID:   make(map[int64]*model.Item, len(items)),
		assignments: assignments,
		byLocation:  make(map[int64][]model.Assignment),
	}
	for i := range items {
		snap.itemsByID[items[i].ID] = &items[i]
	}
	for _, a := range assignments {
		snap.byLocation[a.LocationID] = append(snap.byLocation[a.LocationID], a)
	}
	return snap, nil
}

func (s *snapshot) summary(a model.Assignment, withTimes bool) ItemSummary {
	sum := ItemSummary{ID: a.ItemID, Name: a.ItemName}
	if item, ok := s.itemsByID[a.ItemID]; ok {
		sum.SerialNumber = item.SerialNumber
		sum.ItemType = item.ItemTypeName
	}
	if withTimes {
		assignedAt := a.AssignedAt
		sum.AssignedAt = &assignedAt
		sum.RemovedAt = a.RemovedAt
	}
	return sum
}

func sortByID(rows []InventoryRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Item.ID < rows[j].Item.ID })
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
