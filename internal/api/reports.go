package api

import (
	"net/http"

	"github.com/erazemk/lokator/internal/report"
)

// ReportsHandler serves the read-only reports.
type ReportsHandler struct {
	Reports *report.Reader
}

// Locations handles GET /api/reports/locations.
func (h *ReportsHandler) Locations(w http.ResponseWriter, r *http.Request) {
	occ, err := h.Reports.Occupancy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, occ)
}

// LocationsFull handles GET /api/reports/locations/full.
func (h *ReportsHandler) LocationsFull(w http.ResponseWriter, r *http.Request) {
	audit, err := h.Reports.FullAudit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, audit)
}

// Stats handles GET /api/reports/stats.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
