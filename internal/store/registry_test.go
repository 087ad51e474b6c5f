package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/lokator/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Laptop")
	item, err := s.CreateItem(ctx, model.ItemInput{
		Name:            "Dell XPS 15",
		ItemTypeID:      typ.ID,
		SerialNumber:    "SN-123",
		InventoryNumber: "INV-1",
		PurchaseDate:    "2023-11-20",
		Cost:            decimal.NewNullDecimal(decimal.RequireFromString("1499.90")),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ItemTypeName != "Laptop" {
		t.Errorf("expected type name 'Laptop', got %q", item.ItemTypeName)
	}
	if !item.IsActive {
		t.Error("expected new item to be active")
	}
	if !item.Cost.Valid || !item.Cost.Decimal.Equal(decimal.RequireFromString("1499.9")) {
		t.Errorf("expected cost 1499.90, got %v", item.Cost)
	}
	if item.PurchaseDate != "2023-11-20" {
		t.Errorf("expected purchase date to round-trip, got %q", item.PurchaseDate)
	}
}

func TestItemUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Laptop")
	mustItem(t, s, typ.ID, "A", "SN-1")

	_, err := s.CreateItem(ctx, model.ItemInput{Name: "B", ItemTypeID: typ.ID, SerialNumber: "SN-1"})
	if !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("duplicate serial: expected ErrDuplicate, got %v", err)
	}

	// Items without serial numbers never collide on it.
	mustItem(t, s, typ.ID, "C", "")
	mustItem(t, s, typ.ID, "D", "")

	_, err = s.CreateItem(ctx, model.ItemInput{Name: "E", ItemTypeID: 999})
	if !errors.Is(err, model.ErrItemTypeNotFound) {
		t.Errorf("unknown type: expected ErrItemTypeNotFound, got %v", err)
	}
}

func TestSearchItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Laptop")
	mustItem(t, s, typ.ID, "ThinkPad X1", "AB-100")
	mustItem(t, s, typ.ID, "MacBook", "ZX-200")

	all, err := s.Items(ctx, "")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	byName, _ := s.Items(ctx, "thinkpad")
	if len(byName) != 1 || byName[0].Name != "ThinkPad X1" {
		t.Errorf("search by name: got %+v", byName)
	}

	bySerial, _ := s.Items(ctx, "zx-2")
	if len(bySerial) != 1 || bySerial[0].Name != "MacBook" {
		t.Errorf("search by serial: got %+v", bySerial)
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Chair")
	item := mustItem(t, s, typ.ID, "Chair", "")
	loc := mustLocation(t, s, "Hall")
	place(t, s, item.ID, loc.ID)

	inactive := false
	updated, err := s.UpdateItem(ctx, item.ID, model.ItemInput{Name: "Office Chair", ItemTypeID: typ.ID, IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Name != "Office Chair" || updated.IsActive {
		t.Errorf("unexpected item after update: %+v", updated)
	}
	if !updated.UpdatedAt.After(item.UpdatedAt) {
		t.Error("expected updated_at to advance")
	}

	if err := s.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := s.Item(ctx, item.ID); !errors.Is(err, model.ErrItemNotFound) {
		t.Errorf("expected deleted item to be gone, got %v", err)
	}
	occupants, _ := s.ActiveForLocation(ctx, loc.ID)
	if len(occupants) != 0 {
		t.Errorf("expected assignments to be deleted with the item, got %d", len(occupants))
	}

	if err := s.DeleteItem(ctx, item.ID); !errors.Is(err, model.ErrItemNotFound) {
		t.Errorf("second delete: expected ErrItemNotFound, got %v", err)
	}
}

func TestItemPhoto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Camera")
	item := mustItem(t, s, typ.ID, "Camera", "")

	data, _, err := s.ItemPhoto(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemPhoto: %v", err)
	}
	if data != nil {
		t.Error("expected no photo initially")
	}

	if err := s.SetItemPhoto(ctx, item.ID, []byte("jpeg bytes"), "image/jpeg"); err != nil {
		t.Fatalf("SetItemPhoto: %v", err)
	}
	data, mime, err := s.ItemPhoto(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemPhoto: %v", err)
	}
	if string(data) != "jpeg bytes" || mime != "image/jpeg" {
		t.Errorf("unexpected photo %q (%s)", data, mime)
	}

	if err := s.SetItemPhoto(ctx, 999, []byte("x"), "image/jpeg"); !errors.Is(err, model.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItemTypeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Tablet")
	if _, err := s.CreateItemType(ctx, "Tablet"); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	renamed, err := s.RenameItemType(ctx, typ.ID, "Tablets")
	if err != nil {
		t.Fatalf("RenameItemType: %v", err)
	}
	if renamed.Name != "Tablets" {
		t.Errorf("expected 'Tablets', got %q", renamed.Name)
	}

	item := mustItem(t, s, typ.ID, "iPad", "")
	if err := s.DeleteItemType(ctx, typ.ID); !errors.Is(err, model.ErrInUse) {
		t.Errorf("expected ErrInUse while referenced, got %v", err)
	}

	if err := s.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := s.DeleteItemType(ctx, typ.ID); err != nil {
		t.Fatalf("DeleteItemType: %v", err)
	}
	if _, err := s.ItemType(ctx, typ.ID); !errors.Is(err, model.ErrItemTypeNotFound) {
		t.Errorf("expected ErrItemTypeNotFound, got %v", err)
	}
}

func TestLocationRenameGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := mustLocation(t, s, "Lab")
	if _, err := s.UpdateLocation(ctx, loc.ID, "Lab 2", "second floor"); err != nil {
		t.Fatalf("renaming unreferenced location: %v", err)
	}

	typ := mustItemType(t, s, "Scope")
	item := mustItem(t, s, typ.ID, "Scope", "")
	place(t, s, item.ID, loc.ID)

	if _, err := s.UpdateLocation(ctx, loc.ID, "Lab 3", "second floor"); !errors.Is(err, model.ErrInUse) {
		t.Errorf("expected ErrInUse renaming a referenced location, got %v", err)
	}

	got, err := s.UpdateLocation(ctx, loc.ID, "Lab 2", "moved to third floor")
	if err != nil {
		t.Fatalf("updating description: %v", err)
	}
	if got.Description != "moved to third floor" {
		t.Errorf("expected new description, got %q", got.Description)
	}
}

func TestDeleteLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Box")
	item := mustItem(t, s, typ.ID, "Box", "")
	a := mustLocation(t, s, "A")
	b := mustLocation(t, s, "B")
	place(t, s, item.ID, a.ID)

	if err := s.DeleteLocation(ctx, a.ID); !errors.Is(err, model.ErrInUse) {
		t.Fatalf("expected ErrInUse for occupied location, got %v", err)
	}

	place(t, s, item.ID, b.ID)
	if err := s.DeleteLocation(ctx, a.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}

	history, _ := s.History(ctx, item.ID)
	if len(history) != 1 || history[0].LocationID != b.ID {
		t.Errorf("expected only the record at B to remain, got %+v", history)
	}

	if err := s.DeleteLocation(ctx, a.ID); !errors.Is(err, model.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestAssociations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Computer")
	pc := mustItem(t, s, typ.ID, "PC", "")
	monitor := mustItem(t, s, typ.ID, "Monitor", "")

	a, err := s.CreateAssociation(ctx, pc.ID, monitor.ID)
	if err != nil {
		t.Fatalf("CreateAssociation: %v", err)
	}
	if a.ParentName != "PC" || a.ChildName != "Monitor" {
		t.Errorf("unexpected names: %+v", a)
	}

	if _, err := s.CreateAssociation(ctx, pc.ID, monitor.ID); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.CreateAssociation(ctx, pc.ID, pc.ID); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := s.CreateAssociation(ctx, pc.ID, 999); !errors.Is(err, model.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	list, _ := s.Associations(ctx, monitor.ID)
	if len(list) != 1 {
		t.Errorf("expected 1 association for monitor, got %d", len(list))
	}

	if err := s.DeleteAssociation(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAssociation: %v", err)
	}
	if err := s.DeleteAssociation(ctx, a.ID); !errors.Is(err, model.ErrAssociationNotFound) {
		t.Errorf("expected ErrAssociationNotFound, got %v", err)
	}
}
