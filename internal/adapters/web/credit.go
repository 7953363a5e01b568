package web

import (
	"net/http"

	"credit-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// parseAmount parses a JSON string amount. Amounts travel as strings to avoid
// float64 precision loss in intermediaries.
func parseAmount(w http.ResponseWriter, r *http.Request, field, raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, r, field+" must be a decimal string", "VALIDATION_ERROR", http.StatusBadRequest)
		return decimal.Decimal{}, false
	}
	return d, true
}

// accountResponse is the JSON shape shared by all account mutations.
type accountResponse struct {
	Customer any `json:"customer"`
	Account  any `json:"account"`
}

func writeAccount(w http.ResponseWriter, result *app.AccountResult) {
	writeJSON(w, accountResponse{Customer: result.Customer, Account: result.Account})
}

// apiOpenAccount handles POST /api/credit/accounts.
// Body: { customer, credit_limit }
func (h *Handler) apiOpenAccount(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Customer    string `json:"customer"`
		CreditLimit string `json:"credit_limit"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	limit, ok := parseAmount(w, r, "credit_limit", body.CreditLimit)
	if !ok {
		return
	}

	result, err := h.svc.OpenAccount(r.Context(), body.Customer, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, accountResponse{Customer: result.Customer, Account: result.Account})
}

// apiGetAccount handles GET /api/credit/accounts/{ref}.
func (h *Handler) apiGetAccount(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetAccount(r.Context(), customerRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpdateLimit handles PUT /api/credit/accounts/{ref}/limit.
// Body: { credit_limit }
func (h *Handler) apiUpdateLimit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreditLimit string `json:"credit_limit"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	limit, ok := parseAmount(w, r, "credit_limit", body.CreditLimit)
	if !ok {
		return
	}

	result, err := h.svc.UpdateCreditLimit(r.Context(), customerRef(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAccount(w, result)
}

// apiSetActive handles PUT /api/credit/accounts/{ref}/active.
// Body: { active }
func (h *Handler) apiSetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.SetAccountActive(r.Context(), customerRef(r), body.Active)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAccount(w, result)
}

// apiListMovements handles GET /api/credit/accounts/{ref}/movements.
func (h *Handler) apiListMovements(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListMovements(r.Context(), customerRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Movements)
}

// apiRecordCharge handles POST /api/credit/charges.
// Body: { customer, order_id, amount, due_date?, term_days?, notes?, created_by? }
func (h *Handler) apiRecordCharge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Customer  string `json:"customer"`
		OrderID   string `json:"order_id"`
		Amount    string `json:"amount"`
		DueDate   string `json:"due_date"`
		TermDays  int    `json:"term_days"`
		Notes     string `json:"notes"`
		CreatedBy string `json:"created_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	amount, ok := parseAmount(w, r, "amount", body.Amount)
	if !ok {
		return
	}

	result, err := h.svc.RecordCharge(r.Context(), app.ChargeRequest{
		CustomerRef: body.Customer,
		OrderID:     body.OrderID,
		Amount:      amount,
		DueDate:     body.DueDate,
		TermDays:    body.TermDays,
		Notes:       body.Notes,
		CreatedBy:   body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, accountResponse{Customer: result.Customer, Account: result.Account})
}

// apiReserveCredit handles POST /api/credit/reservations.
// Body: { customer, order_id, amount, created_by? }
func (h *Handler) apiReserveCredit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Customer  string `json:"customer"`
		OrderID   string `json:"order_id"`
		Amount    string `json:"amount"`
		CreatedBy string `json:"created_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	amount, ok := parseAmount(w, r, "amount", body.Amount)
	if !ok {
		return
	}

	result, err := h.svc.ReserveCredit(r.Context(), app.ReserveRequest{
		CustomerRef: body.Customer,
		OrderID:     body.OrderID,
		Amount:      amount,
		CreatedBy:   body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, accountResponse{Customer: result.Customer, Account: result.Account})
}

// apiCancelReservation handles DELETE /api/credit/reservations/{orderID}?customer=.
func (h *Handler) apiCancelReservation(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	customer := r.URL.Query().Get("customer")
	if customer == "" {
		writeError(w, r, "customer query parameter is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CancelReservation(r.Context(), customer, orderID, r.URL.Query().Get("created_by"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAccount(w, result)
}

// apiRegisterPayment handles POST /api/credit/payments.
// Body: { customer, amount, payment_method?, reference?, notes?,
//         apply_to_orders?, idempotency_key?, created_by? }
func (h *Handler) apiRegisterPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Customer       string   `json:"customer"`
		Amount         string   `json:"amount"`
		PaymentMethod  string   `json:"payment_method"`
		Reference      string   `json:"reference"`
		Notes          string   `json:"notes"`
		ApplyToOrders  []string `json:"apply_to_orders"`
		IdempotencyKey string   `json:"idempotency_key"`
		CreatedBy      string   `json:"created_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	amount, ok := parseAmount(w, r, "amount", body.Amount)
	if !ok {
		return
	}

	result, err := h.svc.RegisterPayment(r.Context(), app.PaymentRequest{
		CustomerRef:    body.Customer,
		Amount:         amount,
		PaymentMethod:  body.PaymentMethod,
		Reference:      body.Reference,
		Notes:          body.Notes,
		ApplyToOrders:  body.ApplyToOrders,
		IdempotencyKey: body.IdempotencyKey,
		CreatedBy:      body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiAdjust handles POST /api/credit/adjustments.
// Body: { customer, amount, reason, created_by? }
func (h *Handler) apiAdjust(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Customer  string `json:"customer"`
		Amount    string `json:"amount"`
		Reason    string `json:"reason"`
		CreatedBy string `json:"created_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	amount, ok := parseAmount(w, r, "amount", body.Amount)
	if !ok {
		return
	}

	result, err := h.svc.Adjust(r.Context(), app.AdjustmentRequest{
		CustomerRef: body.Customer,
		Amount:      amount,
		Reason:      body.Reason,
		CreatedBy:   body.CreatedBy,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, accountResponse{Customer: result.Customer, Account: result.Account})
}
