package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/erazemk/lokator/internal/exchange"
	"github.com/erazemk/lokator/internal/report"
	"github.com/erazemk/lokator/internal/store"
)

// maxImportBytes caps uploaded CSV files.
const maxImportBytes = 5 << 20

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExchangeHandler handles inventory export and import.
type ExchangeHandler struct {
	Store   *store.Store
	Reports *report.Reader
}

// Export handles GET /api/export/inventory?format=csv|xlsx.
func (h *ExchangeHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		jsonError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	rows, err := h.Reports.Inventory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render into memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = xlsxMIME
		err = exchange.ExportXLSX(&buf, rows)
	} else {
		err = exchange.ExportCSV(&buf, rows)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// Import handles POST /api/import/inventory with the CSV in the multipart
// field "file". The answer is 201 when every row was imported and 207 when
// some rows were rejected.
func (h *ExchangeHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes+1<<20)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	res, err := exchange.ImportCSV(r.Context(), h.Store, file)
	if errors.Is(err, exchange.ErrBadHeader) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if len(res.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	jsonResponse(w, status, res)
}
