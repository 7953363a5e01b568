package web

import (
	"net/http"

	"credit-ledger/internal/app"
)

// apiListCustomers handles GET /api/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customers)
}

// apiCreateCustomer handles POST /api/customers.
// Body: { code, name, email?, phone?, address?, payment_terms_days? }
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code             string `json:"code"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		Phone            string `json:"phone"`
		Address          string `json:"address"`
		PaymentTermsDays int    `json:"payment_terms_days"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CreateCustomer(r.Context(), app.CreateCustomerRequest{
		Code:             body.Code,
		Name:             body.Name,
		Email:            body.Email,
		Phone:            body.Phone,
		Address:          body.Address,
		PaymentTermsDays: body.PaymentTermsDays,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result.Customer)
}

// apiGetCustomer handles GET /api/customers/{ref}.
func (h *Handler) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetCustomer(r.Context(), customerRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Customer)
}
