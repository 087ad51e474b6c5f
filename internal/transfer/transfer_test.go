package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/lokator/internal/clock"
	"github.com/erazemk/lokator/internal/db"
	"github.com/erazemk/lokator/internal/metrics"
	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/report"
	"github.com/erazemk/lokator/internal/store"
)

type fixture struct {
	store *store.Store
	svc   *Service
	typ   *model.ItemType
}

func newFixture(t *testing.T, database *sql.DB) *fixture {
	t.Helper()
	return newDialectFixture(t, database, db.SQLite{})
}

func newDialectFixture(t *testing.T, database *sql.DB, d db.Dialect) *fixture {
	t.Helper()
	s := store.New(database, d, clock.NewManual(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))
	typ, err := s.CreateItemType(context.Background(), "Equipment")
	if err != nil {
		t.Fatalf("CreateItemType: %v", err)
	}
	opts := Options{MaxRetries: 5, RetryBackoff: time.Millisecond, BulkWorkers: 4}
	return &fixture{store: s, svc: New(s, metrics.New(), opts), typ: typ}
}

func (f *fixture) item(t *testing.T, name string) *model.Item {
	t.Helper()
	item, err := f.store.CreateItem(context.Background(), model.ItemInput{Name: name, ItemTypeID: f.typ.ID})
	if err != nil {
		t.Fatalf("CreateItem(%q): %v", name, err)
	}
	return item
}

func (f *fixture) location(t *testing.T, name string) *model.Location {
	t.Helper()
	l, err := f.store.CreateLocation(context.Background(), name, "")
	if err != nil {
		t.Fatalf("CreateLocation(%q): %v", name, err)
	}
	return l
}

func (f *fixture) assertSingleActive(t *testing.T, itemID, wantLocation int64) {
	t.Helper()
	history, err := f.store.History(context.Background(), itemID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var active []model.Assignment
	for _, a := range history {
		if a.Active() {
			active = append(active, a)
		}
	}
	if len(active) != 1 {
		t.Fatalf("item %d: expected exactly 1 active assignment, got %d", itemID, len(active))
	}
	if active[0].LocationID != wantLocation {
		t.Errorf("item %d: expected active at %d, got %d", itemID, wantLocation, active[0].LocationID)
	}
}

func TestTransferCreatesAssignment(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Laptop")
	loc := f.location(t, "Room 101")

	res, err := f.svc.Transfer(ctx, item.ID, loc.ID)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Outcome != model.PlacementCreated {
		t.Errorf("expected created, got %s", res.Outcome)
	}
	if res.Assignment.ItemID != item.ID || res.Assignment.LocationID != loc.ID {
		t.Errorf("unexpected assignment %+v", res.Assignment)
	}
	if !res.Assignment.Active() {
		t.Error("expected the new assignment to be active")
	}
	f.assertSingleActive(t, item.ID, loc.ID)
}

func TestTransferIsIdempotent(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Projector")
	loc := f.location(t, "Hall")

	first, err := f.svc.Transfer(ctx, item.ID, loc.ID)
	if err != nil {
		t.Fatalf("first Transfer: %v", err)
	}
	second, err := f.svc.Transfer(ctx, item.ID, loc.ID)
	if err != nil {
		t.Fatalf("second Transfer: %v", err)
	}
	if second.Outcome != model.PlacementAlreadyThere {
		t.Errorf("expected already_at_location, got %s", second.Outcome)
	}
	if second.Assignment.ID != first.Assignment.ID {
		t.Errorf("expected same record, got %d and %d", first.Assignment.ID, second.Assignment.ID)
	}
	if !second.Assignment.AssignedAt.Equal(first.Assignment.AssignedAt) {
		t.Error("repeated transfer must not touch assigned_at")
	}

	history, _ := f.store.History(ctx, item.ID)
	if len(history) != 1 {
		t.Errorf("expected 1 record, got %d", len(history))
	}
}

func TestTransferRoundTripReactivates(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Printer")
	a := f.location(t, "A")
	b := f.location(t, "B")

	atA, err := f.svc.Transfer(ctx, item.ID, a.ID)
	if err != nil {
		t.Fatalf("Transfer to A: %v", err)
	}
	atB, err := f.svc.Transfer(ctx, item.ID, b.ID)
	if err != nil {
		t.Fatalf("Transfer to B: %v", err)
	}
	if atB.Outcome != model.PlacementCreated {
		t.Errorf("expected created at B, got %s", atB.Outcome)
	}
	f.assertSingleActive(t, item.ID, b.ID)

	back, err := f.svc.Transfer(ctx, item.ID, a.ID)
	if err != nil {
		t.Fatalf("Transfer back to A: %v", err)
	}
	if back.Outcome != model.PlacementReactivated {
		t.Errorf("expected reactivated, got %s", back.Outcome)
	}
	if back.Assignment.ID != atA.Assignment.ID {
		t.Errorf("expected record %d to be reused, got %d", atA.Assignment.ID, back.Assignment.ID)
	}
	if !back.Assignment.AssignedAt.After(atB.Assignment.AssignedAt) {
		t.Error("reactivated record should carry a fresh assigned_at")
	}
	f.assertSingleActive(t, item.ID, a.ID)

	history, _ := f.store.History(ctx, item.ID)
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].ID != atA.Assignment.ID || history[1].ID != atB.Assignment.ID {
		t.Errorf("expected newest first, got %d then %d", history[0].ID, history[1].ID)
	}
	if history[1].RemovedAt == nil {
		t.Error("record at B should be closed")
	}
}

func TestTransferNotFound(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Scanner")
	loc := f.location(t, "Office")

	if _, err := f.svc.Transfer(ctx, 99999, loc.ID); !errors.Is(err, model.ErrItemNotFound) {
		t.Errorf("missing item: expected ErrItemNotFound, got %v", err)
	}
	if _, err := f.svc.Transfer(ctx, item.ID, 99999); !errors.Is(err, model.ErrLocationNotFound) {
		t.Errorf("missing location: expected ErrLocationNotFound, got %v", err)
	}

	active, err := f.store.ActiveForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ActiveForItem: %v", err)
	}
	if active != nil {
		t.Error("failed transfer must leave the item unassigned")
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Tablet")
	loc := f.location(t, "Store")

	res, err := f.svc.Transfer(ctx, item.ID, loc.ID)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	removedAt, err := f.svc.Remove(ctx, res.Assignment.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removedAt.After(res.Assignment.AssignedAt) {
		t.Errorf("removed_at %v should follow assigned_at %v", removedAt, res.Assignment.AssignedAt)
	}

	if _, err := f.svc.Remove(ctx, res.Assignment.ID); !errors.Is(err, model.ErrAlreadyClosed) {
		t.Errorf("second Remove: expected ErrAlreadyClosed, got %v", err)
	}
	if _, err := f.svc.Remove(ctx, 99999); !errors.Is(err, model.ErrRecordNotFound) {
		t.Errorf("missing record: expected ErrRecordNotFound, got %v", err)
	}

	// A removed item can come back to the same place.
	again, err := f.svc.Transfer(ctx, item.ID, loc.ID)
	if err != nil {
		t.Fatalf("Transfer after remove: %v", err)
	}
	if again.Outcome != model.PlacementReactivated || again.Assignment.ID != res.Assignment.ID {
		t.Errorf("expected reactivation of %d, got %s on %d", res.Assignment.ID, again.Outcome, again.Assignment.ID)
	}
}

func TestConcurrentTransfersKeepOneActive(t *testing.T) {
	f := newFixture(t, db.NewTestFileDB(t))
	ctx := context.Background()

	item := f.item(t, "Contended")
	var locations []*model.Location
	for i := range 4 {
		locations = append(locations, f.location(t, fmt.Sprintf("L%d", i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Transfer(ctx, item.ID, locations[i%len(locations)].ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, model.ErrConcurrencyConflict) {
			t.Errorf("unexpected transfer error: %v", err)
		}
	}

	active, err := f.store.ActiveForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ActiveForItem: %v", err)
	}
	if active == nil {
		t.Fatal("expected the item to be assigned somewhere")
	}

	history, _ := f.store.History(ctx, item.ID)
	if len(history) > len(locations) {
		t.Errorf("expected at most one record per location, got %d", len(history))
	}
}

func TestTransferRepairsDoubleAssignment(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	ctx := context.Background()

	item := f.item(t, "Camera")
	a := f.location(t, "Studio")
	b := f.location(t, "Storage")

	// Without the index nothing in the database stops a second active record.
	if _, err := f.store.DB.ExecContext(ctx, `DROP INDEX idx_assignments_one_active`); err != nil {
		t.Fatalf("dropping index: %v", err)
	}
	at := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	for _, loc := range []int64{a.ID, b.ID} {
		if _, err := f.store.DB.ExecContext(ctx,
			`INSERT INTO assignments (item_id, location_id, assigned_at) VALUES (?, ?, ?)`, item.ID, loc, at,
		); err != nil {
			t.Fatalf("inserting assignment: %v", err)
		}
	}

	if _, err := f.store.ActiveForItem(ctx, item.ID); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("ActiveForItem: expected ErrInvariantViolation, got %v", err)
	}
	if _, err := report.New(f.store).CurrentLocation(ctx, item.ID); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("CurrentLocation: expected ErrInvariantViolation, got %v", err)
	}

	res, err := f.svc.Transfer(ctx, item.ID, b.ID)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Outcome != model.PlacementAlreadyThere {
		t.Errorf("expected already_at_location, got %s", res.Outcome)
	}
	f.assertSingleActive(t, item.ID, b.ID)

	loc, err := report.New(f.store).CurrentLocation(ctx, item.ID)
	if err != nil {
		t.Fatalf("CurrentLocation: %v", err)
	}
	if loc == nil || loc.ID != b.ID {
		t.Errorf("expected current location %d, got %+v", b.ID, loc)
	}
}
