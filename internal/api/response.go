package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/lokator/internal/imaging"
	"github.com/erazemk/lokator/internal/model"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps a domain error to its HTTP status. Unexpected errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, err.Error())
	case model.IsNotFound(err):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrAlreadyClosed):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrDuplicate), errors.Is(err, model.ErrInUse):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrConcurrencyConflict):
		jsonError(w, http.StatusConflict, model.ErrConcurrencyConflict.Error())
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, model.ErrInvariantViolation):
		slog.Error("ledger invariant violated", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into target and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid request body", model.ErrInvalidInput)
	}
	return model.Validate(target)
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, name)
	}
	return id, nil
}
