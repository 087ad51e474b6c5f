package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// AssociationsHandler handles parent/child links between items.
type AssociationsHandler struct {
	Store *store.Store
}

type associationRequest struct {
	ParentItemID int64 `json:"parent_item_id" validate:"required,gt=0"`
	ChildItemID  int64 `json:"child_item_id" validate:"required,gt=0"`
}

// List handles GET /api/associations. With item_id only links involving that
// item are returned.
func (h *AssociationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var itemID int64
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		itemID = id
	}

	links, err := h.Store.Associations(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if links == nil {
		links = []model.Association{}
	}
	jsonResponse(w, http.StatusOK, links)
}

// Create handles POST /api/associations.
func (h *AssociationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req associationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	link, err := h.Store.CreateAssociation(r.Context(), req.ParentItemID, req.ChildItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, link)
}

// Delete handles DELETE /api/associations/{id}.
func (h *AssociationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.DeleteAssociation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("association deleted", "id", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "association deleted"})
}
