package transfer

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/lokator/internal/model"
)

// Reasons reported for items a bulk transfer could not move.
const (
	ReasonNotFound = "not found"
	ReasonCanceled = "canceled"
)

// BulkError explains why one item of a bulk transfer was not moved.
type BulkError struct {
	ItemID int64  `json:"item_id"`
	Reason string `json:"error"`
}

// BulkResult lists the moved items and the failures, both in request order.
type BulkResult struct {
	Transferred []int64     `json:"transferred"`
	Errors      []BulkError `json:"errors"`
}

// BulkTransfer moves every item to locationID. A missing location fails the
// whole batch before anything is changed. After that each item succeeds or
// fails on its own, in its own transaction, and no lock is held across items.
func (svc *Service) BulkTransfer(ctx context.Context, itemIDs []int64, locationID int64) (*BulkResult, error) {
	if _, err := svc.store.Location(ctx, locationID); err != nil {
		return nil, err
	}

	outcomes := make([]error, len(itemIDs))

	g := new(errgroup.Group)
	g.SetLimit(svc.opts.BulkWorkers)
	for i, itemID := range itemIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = err
				return nil
			}
			_, outcomes[i] = svc.Transfer(ctx, itemID, locationID)
			return nil
		})
	}
	_ = g.Wait()

	res := &BulkResult{Transferred: []int64{}, Errors: []BulkError{}}
	for i, err := range outcomes {
		if err == nil {
			res.Transferred = append(res.Transferred, itemIDs[i])
			continue
		}
		res.Errors = append(res.Errors, BulkError{ItemID: itemIDs[i], Reason: bulkReason(err)})
	}

	svc.metrics.ObserveBulk(len(res.Transferred), len(res.Errors))
	slog.Info("bulk transfer finished",
		"location_id", locationID, "transferred", len(res.Transferred), "failed", len(res.Errors))
	return res, nil
}

func bulkReason(err error) string {
	switch {
	case errors.Is(err, model.ErrItemNotFound):
		return ReasonNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	}
	return err.Error()
}
