package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/store"
)

// ItemTypesHandler handles item type endpoints.
type ItemTypesHandler struct {
	Store *store.Store
}

type itemTypeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List handles GET /api/item-types.
func (h *ItemTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ItemTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if types == nil {
		types = []model.ItemType{}
	}
	jsonResponse(w, http.StatusOK, types)
}

// Create handles POST /api/item-types.
func (h *ItemTypesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Store.CreateItemType(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, t)
}

// Get handles GET /api/item-types/{id}.
func (h *ItemTypesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Store.ItemType(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Update handles PUT /api/item-types/{id}.
func (h *ItemTypesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req itemTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Store.RenameItemType(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Delete handles DELETE /api/item-types/{id}.
func (h *ItemTypesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.DeleteItemType(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item type deleted", "id", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item type deleted"})
}
