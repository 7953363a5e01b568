package web

import (
	"net/http"
	"strconv"
)

// apiOverdueAccounts handles GET /api/credit/overdue?term=&page=&page_size=.
func (h *Handler) apiOverdueAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var termDays *int
	if raw := q.Get("term"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, "term must be a positive integer", "VALIDATION_ERROR", http.StatusBadRequest)
			return
		}
		termDays = &n
	}

	page := queryInt(q.Get("page"), 1)
	pageSize := queryInt(q.Get("page_size"), 20)

	report, err := h.svc.GetOverdueAccounts(r.Context(), termDays, page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiPortfolioSummary handles GET /api/credit/portfolio.
func (h *Handler) apiPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetPortfolioSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// queryInt parses an optional positive integer query parameter.
func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
