package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/lokator/internal/model"
)

func TestOpenOrReactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Monitor")
	item := mustItem(t, s, typ.ID, "Dell U2720Q", "")
	a := mustLocation(t, s, "A")
	b := mustLocation(t, s, "B")

	first, how := place(t, s, item.ID, a.ID)
	if how != model.PlacementCreated {
		t.Errorf("first placement: expected created, got %s", how)
	}

	again, how := place(t, s, item.ID, a.ID)
	if how != model.PlacementAlreadyThere {
		t.Errorf("repeat placement: expected already_at_location, got %s", how)
	}
	if again.ID != first.ID {
		t.Errorf("repeat placement changed record %d to %d", first.ID, again.ID)
	}

	place(t, s, item.ID, b.ID)
	back, how := place(t, s, item.ID, a.ID)
	if how != model.PlacementReactivated {
		t.Errorf("return placement: expected reactivated, got %s", how)
	}
	if back.ID != first.ID {
		t.Errorf("reactivation should reuse record %d, got %d", first.ID, back.ID)
	}
	if !back.AssignedAt.After(first.AssignedAt) {
		t.Errorf("reactivated assigned_at %v should be after %v", back.AssignedAt, first.AssignedAt)
	}

	history, err := s.History(ctx, item.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].LocationID != a.ID || !history[0].Active() {
		t.Errorf("newest record should be the active one at A, got %+v", history[0])
	}
	if history[1].LocationID != b.ID || history[1].Active() {
		t.Errorf("older record should be the closed one at B, got %+v", history[1])
	}
}

func TestOpenOrReactivateMissingLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Chair")
	item := mustItem(t, s, typ.ID, "Chair", "")

	err := s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		_, _, err := l.OpenOrReactivate(ctx, item.ID, 99999)
		return err
	})
	if !errors.Is(err, model.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestCloseRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Printer")
	item := mustItem(t, s, typ.ID, "HP LaserJet", "")
	loc := mustLocation(t, s, "Office")
	rec, _ := place(t, s, item.ID, loc.ID)

	var closed *model.Assignment
	err := s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		var err error
		closed, err = l.Close(ctx, rec.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.RemovedAt == nil {
		t.Fatal("expected removed_at to be set")
	}

	active, err := s.ActiveForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ActiveForItem: %v", err)
	}
	if active != nil {
		t.Errorf("expected item to be unassigned, got %+v", active)
	}

	err = s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		_, err := l.Close(ctx, rec.ID)
		return err
	})
	if !errors.Is(err, model.ErrAlreadyClosed) {
		t.Fatalf("second Close: expected ErrAlreadyClosed, got %v", err)
	}
}

func TestActiveForLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Desk")
	d1 := mustItem(t, s, typ.ID, "Desk 1", "")
	d2 := mustItem(t, s, typ.ID, "Desk 2", "")
	room := mustLocation(t, s, "Room")
	other := mustLocation(t, s, "Other")

	place(t, s, d1.ID, room.ID)
	place(t, s, d2.ID, room.ID)
	place(t, s, d2.ID, other.ID)

	occupants, err := s.ActiveForLocation(ctx, room.ID)
	if err != nil {
		t.Fatalf("ActiveForLocation: %v", err)
	}
	if len(occupants) != 1 || occupants[0].ItemID != d1.ID {
		t.Errorf("expected only Desk 1 at Room, got %+v", occupants)
	}
}

func TestSingleActiveIndexRejectsSecondActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Phone")
	item := mustItem(t, s, typ.ID, "Phone", "")
	a := mustLocation(t, s, "A")
	b := mustLocation(t, s, "B")
	place(t, s, item.ID, a.ID)

	err := s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		_, _, err := l.OpenOrReactivate(ctx, item.ID, b.ID)
		return err
	})
	if err == nil {
		t.Fatal("expected opening a second active record without closing the first to fail")
	}
	if !errors.Is(err, model.ErrConcurrencyConflict) {
		t.Errorf("expected unique violation to classify as a conflict, got %v", err)
	}
}

// splitActive drops the single-active index and gives the item a second
// active record, a state the ledger itself never produces.
func splitActive(t *testing.T, s *Store, itemID, a, b int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.DB.ExecContext(ctx, `DROP INDEX idx_assignments_one_active`); err != nil {
		t.Fatalf("dropping index: %v", err)
	}
	for _, locationID := range []int64{a, b} {
		if _, err := s.DB.ExecContext(ctx,
			`INSERT INTO assignments (item_id, location_id, assigned_at) VALUES (?, ?, ?)`,
			itemID, locationID, testStart,
		); err != nil {
			t.Fatalf("inserting assignment: %v", err)
		}
	}
}

func TestActiveForItemDetectsDoubleAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Scanner")
	item := mustItem(t, s, typ.ID, "Scanner", "")
	a := mustLocation(t, s, "A")
	b := mustLocation(t, s, "B")
	splitActive(t, s, item.ID, a.ID, b.ID)

	if _, err := s.ActiveForItem(ctx, item.ID); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("ActiveForItem: expected ErrInvariantViolation, got %v", err)
	}
	err := s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		return l.VerifySingleActive(ctx, item.ID)
	})
	if !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("VerifySingleActive: expected ErrInvariantViolation, got %v", err)
	}
}

func TestLockLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	typ := mustItemType(t, s, "Lamp")
	item := mustItem(t, s, typ.ID, "Lamp", "")
	loc := mustLocation(t, s, "Attic")

	err := s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		return l.LockLocation(ctx, loc.ID)
	})
	if err != nil {
		t.Fatalf("LockLocation: %v", err)
	}

	err = s.InItemTx(ctx, item.ID, func(l *Ledger) error {
		return l.LockLocation(ctx, 99999)
	})
	if !errors.Is(err, model.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}
