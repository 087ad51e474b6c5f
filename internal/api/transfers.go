package api

import (
	"net/http"
	"time"

	"github.com/erazemk/lokator/internal/store"
	"github.com/erazemk/lokator/internal/transfer"
)

// TransfersHandler handles transfers and removals.
type TransfersHandler struct {
	Store     *store.Store
	Transfers *transfer.Service
}

type transferRequest struct {
	LocationID int64 `json:"location_id" validate:"required,gt=0"`
}

type bulkTransferRequest struct {
	ItemIDs    []int64 `json:"item_ids" validate:"required,max=1000"`
	LocationID int64   `json:"location_id" validate:"required,gt=0"`
}

type removeResponse struct {
	Status    string    `json:"status"`
	RemovedAt time.Time `json:"removed_at"`
}

// Transfer handles POST /api/items/{id}/transfer.
func (h *TransfersHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Transfers.Transfer(r.Context(), id, req.LocationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// BulkTransfer handles POST /api/items/bulk-transfer. Once the location
// exists the answer is 200 even if some items failed; the failures are
// listed in the body.
func (h *TransfersHandler) BulkTransfer(w http.ResponseWriter, r *http.Request) {
	var req bulkTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Transfers.BulkTransfer(r.Context(), req.ItemIDs, req.LocationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// GetAssignment handles GET /api/assignments/{id}.
func (h *TransfersHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.Store.Record(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Remove handles POST /api/assignments/{id}/remove.
func (h *TransfersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	removedAt, err := h.Transfers.Remove(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, removeResponse{Status: "removed", RemovedAt: removedAt})
}
