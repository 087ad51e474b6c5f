package api

import (
	"net/http"

	"github.com/erazemk/lokator/internal/auth"
	"github.com/erazemk/lokator/internal/imaging"
	"github.com/erazemk/lokator/internal/metrics"
	"github.com/erazemk/lokator/internal/model"
	"github.com/erazemk/lokator/internal/report"
	"github.com/erazemk/lokator/internal/store"
	"github.com/erazemk/lokator/internal/transfer"
)

// Deps are the services the API is built on. Metrics is optional; when it
// is nil /metrics is not served.
type Deps struct {
	Store     *store.Store
	Transfers *transfer.Service
	Reports   *report.Reader
	Tokens    *auth.Tokens
	Photos    *imaging.Normalizer
	Metrics   *metrics.Metrics
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	if d.Photos == nil {
		d.Photos = imaging.New()
	}

	authHandler := &AuthHandler{Store: d.Store, Tokens: d.Tokens}
	typesHandler := &ItemTypesHandler{Store: d.Store}
	locationsHandler := &LocationsHandler{Store: d.Store, Reports: d.Reports}
	itemsHandler := &ItemsHandler{Store: d.Store, Reports: d.Reports, Photos: d.Photos}
	transfersHandler := &TransfersHandler{Store: d.Store, Transfers: d.Transfers}
	associationsHandler := &AssociationsHandler{Store: d.Store}
	reportsHandler := &ReportsHandler{Reports: d.Reports}
	exchangeHandler := &ExchangeHandler{Store: d.Store, Reports: d.Reports}

	authMW := AuthMiddleware(d.Tokens, d.Store)
	requireManager := RequireRole(model.RoleManager)

	// read is open to every authenticated role, write needs manager or above.
	read := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	write := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", health(d.Store))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	mux.Handle("POST /api/auth/logout", read(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", read(authHandler.ChangePassword))

	mux.Handle("GET /api/item-types", read(typesHandler.List))
	mux.Handle("POST /api/item-types", write(typesHandler.Create))
	mux.Handle("GET /api/item-types/{id}", read(typesHandler.Get))
	mux.Handle("PUT /api/item-types/{id}", write(typesHandler.Update))
	mux.Handle("DELETE /api/item-types/{id}", write(typesHandler.Delete))

	mux.Handle("GET /api/locations", read(locationsHandler.List))
	mux.Handle("POST /api/locations", write(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", read(locationsHandler.Get))
	mux.Handle("PUT /api/locations/{id}", write(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", write(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{id}/occupants", read(locationsHandler.Occupants))

	mux.Handle("GET /api/items", read(itemsHandler.List))
	mux.Handle("POST /api/items", write(itemsHandler.Create))
	mux.Handle("POST /api/items/bulk-transfer", write(transfersHandler.BulkTransfer))
	mux.Handle("GET /api/items/{id}", read(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", write(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", write(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/history", read(itemsHandler.History))
	mux.Handle("GET /api/items/{id}/location", read(itemsHandler.Location))
	mux.Handle("POST /api/items/{id}/transfer", write(transfersHandler.Transfer))
	mux.Handle("PUT /api/items/{id}/photo", write(itemsHandler.UploadPhoto))
	mux.Handle("GET /api/items/{id}/photo", read(itemsHandler.Photo))

	mux.Handle("GET /api/assignments/{id}", read(transfersHandler.GetAssignment))
	mux.Handle("POST /api/assignments/{id}/remove", write(transfersHandler.Remove))

	mux.Handle("GET /api/associations", read(associationsHandler.List))
	mux.Handle("POST /api/associations", write(associationsHandler.Create))
	mux.Handle("DELETE /api/associations/{id}", write(associationsHandler.Delete))

	mux.Handle("GET /api/reports/locations", read(reportsHandler.Locations))
	mux.Handle("GET /api/reports/locations/full", read(reportsHandler.LocationsFull))
	mux.Handle("GET /api/reports/stats", read(reportsHandler.Stats))

	mux.Handle("GET /api/export/inventory", read(exchangeHandler.Export))
	mux.Handle("POST /api/import/inventory", write(exchangeHandler.Import))

	return RequestIDMiddleware(LoggingMiddleware(d.Metrics)(mux))
}

// health reports whether the database answers.
func health(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
