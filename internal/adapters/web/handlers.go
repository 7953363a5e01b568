package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"credit-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Metrics)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Operational endpoints ────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// ── API routes: 1 MB body limit to prevent unbounded request abuse ───────
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Customers
		r.Get("/api/customers", h.apiListCustomers)
		r.Post("/api/customers", h.apiCreateCustomer)
		r.Get("/api/customers/{ref}", h.apiGetCustomer)

		// Credit accounts
		r.Post("/api/credit/accounts", h.apiOpenAccount)
		r.Get("/api/credit/accounts/{ref}", h.apiGetAccount)
		r.Put("/api/credit/accounts/{ref}/limit", h.apiUpdateLimit)
		r.Put("/api/credit/accounts/{ref}/active", h.apiSetActive)
		r.Get("/api/credit/accounts/{ref}/movements", h.apiListMovements)

		// Movements
		r.Post("/api/credit/charges", h.apiRecordCharge)
		r.Post("/api/credit/reservations", h.apiReserveCredit)
		r.Delete("/api/credit/reservations/{orderID}", h.apiCancelReservation)
		r.Post("/api/credit/payments", h.apiRegisterPayment)
		r.Post("/api/credit/adjustments", h.apiAdjust)

		// Reports
		r.Get("/api/credit/overdue", h.apiOverdueAccounts)
		r.Get("/api/credit/portfolio", h.apiPortfolioSummary)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	writeJSON(w, response{Status: "ok", Service: "credit-ledger"})
}

// customerRef extracts the {ref} URL parameter (numeric ID or customer code).
func customerRef(r *http.Request) string {
	return chi.URLParam(r, "ref")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
