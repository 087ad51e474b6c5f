// Package transfer moves items between locations on top of the assignment
// ledger. Every item is handled in its own transaction holding that item's
// lock, so an item never ends up with more than one active assignment.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/lokator/internal/metrics"
	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// Options tunes retries and bulk parallelism.
type Options struct {
	// MaxRetries is how many times an item transaction is retried after a
	// concurrency conflict. Zero disables retries.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// BulkWorkers bounds how many items of one bulk transfer run in parallel.
	BulkWorkers int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MaxRetries: 3, RetryBackoff: 20 * time.Millisecond, BulkWorkers: 4}
}

// Service performs transfers and removals.
type Service struct {
	store   *store.Store
	metrics *metrics.Metrics
	opts    Options
}

// New creates a Service. Metrics may be nil.
func New(s *store.Store, m *metrics.Metrics, opts Options) *Service {
	if opts.BulkWorkers < 1 {
		opts.BulkWorkers = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Service{store: s, metrics: m, opts: opts}
}

// Result is the outcome of a single-item transfer.
type Result struct {
	Assignment *model.Assignment `json:"assignment"`
	Outcome    model.Placement   `json:"outcome"`
}

// Transfer makes locationID the item's only active location. Repeating a
// transfer is harmless: the item stays where it is and the outcome says so.
func (svc *Service) Transfer(ctx context.Context, itemID, locationID int64) (*Result, error) {
	start := time.Now()

	var res *Result
	err := svc.retry(ctx, func() error {
		var err error
		res, err = svc.transferOnce(ctx, itemID, locationID)
		return err
	})

	if err != nil {
		svc.metrics.ObserveTransfer("error", time.Since(start))
		return nil, err
	}
	svc.metrics.ObserveTransfer(string(res.Outcome), time.Since(start))

	slog.Info("item transferred",
		"item_id", itemID, "location_id", locationID,
		"assignment_id", res.Assignment.ID, "outcome", res.Outcome)
	return res, nil
}

func (svc *Service) transferOnce(ctx context.Context, itemID, locationID int64) (*Result, error) {
	var res *Result
	err := svc.store.InItemTx(ctx, itemID, func(l *store.Ledger) error {
		if err := l.LockLocation(ctx, locationID); err != nil {
			return err
		}

		pair, err := l.PairRecord(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		var keep int64
		if pair != nil && pair.Active() {
			keep = pair.ID
		}

		closed, err := l.CloseOthers(ctx, itemID, keep)
		if err != nil {
			return err
		}

		rec, how, err := l.OpenOrReactivate(ctx, itemID, locationID)
		if err != nil {
			return err
		}

		active, err := l.ActiveForItem(ctx, itemID)
		if err != nil {
			return err
		}
		if active == nil || active.ID != rec.ID {
			return fmt.Errorf("item %d: target assignment %d is not the active one: %w",
				itemID, rec.ID, model.ErrInvariantViolation)
		}

		if closed > 0 {
			slog.Debug("closed previous assignments", "item_id", itemID, "count", closed)
		}
		res = &Result{Assignment: active, Outcome: how}
		return nil
	})
	return res, err
}

// Remove closes an active assignment and returns its removal time.
func (svc *Service) Remove(ctx context.Context, recordID int64) (time.Time, error) {
	rec, err := svc.store.Record(ctx, recordID)
	if err != nil {
		svc.metrics.ObserveRemoval("error")
		return time.Time{}, err
	}

	var removedAt time.Time
	err = svc.retry(ctx, func() error {
		return svc.store.InItemTx(ctx, rec.ItemID, func(l *store.Ledger) error {
			closed, err := l.Close(ctx, recordID)
			if err != nil {
				return err
			}
			removedAt = *closed.RemovedAt
			return l.VerifySingleActive(ctx, rec.ItemID)
		})
	})
	if errors.Is(err, model.ErrItemNotFound) {
		// The item, and with it the record, was deleted in between.
		err = model.ErrRecordNotFound
	}
	if err != nil {
		if errors.Is(err, model.ErrAlreadyClosed) {
			svc.metrics.ObserveRemoval("already_closed")
		} else {
			svc.metrics.ObserveRemoval("error")
		}
		return time.Time{}, err
	}

	svc.metrics.ObserveRemoval("removed")
	slog.Info("item removed from location",
		"assignment_id", recordID, "item_id", rec.ItemID, "location_id", rec.LocationID)
	return removedAt, nil
}

// retry runs fn until it succeeds, fails with something other than a
// concurrency conflict, or runs out of attempts.
func (svc *Service) retry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, model.ErrConcurrencyConflict) || attempt >= svc.opts.MaxRetries {
			return err
		}

		svc.metrics.ObserveRetry()
		slog.Debug("retrying after concurrency conflict", "attempt", attempt+1, "error", err)

		wait := svc.opts.RetryBackoff * time.Duration(attempt+1)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
