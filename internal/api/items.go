package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lokator/internal/imaging"
	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/report"
	"github.com/erazemk/lokator/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Store   *store.Store
	Reports *report.Reader
	Photos  *imaging.Normalizer
}

// List handles GET /api/items. The optional search parameter matches names
// and serial numbers.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.Items(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.CreateItem(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "id", item.ID, "name", item.Name, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Store.Item(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. The body replaces every writable field.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in model.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Store.UpdateItem(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. The item's assignments and
// associations go with it.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "id", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.Reports.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, history)
}

type currentLocationResponse struct {
	ItemID   int64           `json:"item_id"`
	Location *model.Location `json:"location"`
}

// Location handles GET /api/items/{id}/location. An unassigned item has a
// null location.
func (h *ItemsHandler) Location(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.Reports.CurrentLocation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, currentLocationResponse{ItemID: id, Location: loc})
}

// UploadPhoto handles PUT /api/items/{id}/photo. The photo is sent as the
// multipart field "photo" and stored as a downscaled JPEG.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, imaging.ErrTooLarge)
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := h.Photos.Normalize(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.SetItemPhoto(r.Context(), id, photo.Data, photo.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item photo updated", "id", id, "width", photo.Width, "height", photo.Height, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "photo updated",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// Photo handles GET /api/items/{id}/photo.
func (h *ItemsHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, mime, err := h.Store.ItemPhoto(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
