package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"credit-ledger/internal/app"
	"credit-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// stubService overrides only the methods a test exercises; calling anything
// else panics, which is the failure we want in a test.
type stubService struct {
	app.ApplicationService
	getAccount    func(ctx context.Context, ref string) (*app.AccountStatusResult, error)
	openAccount   func(ctx context.Context, ref string, limit decimal.Decimal) (*app.AccountResult, error)
	recordCharge  func(ctx context.Context, req app.ChargeRequest) (*app.AccountResult, error)
	listCustomers func(ctx context.Context) (*app.CustomerListResult, error)
}

func (s *stubService) GetAccount(ctx context.Context, ref string) (*app.AccountStatusResult, error) {
	return s.getAccount(ctx, ref)
}

func (s *stubService) OpenAccount(ctx context.Context, ref string, limit decimal.Decimal) (*app.AccountResult, error) {
	return s.openAccount(ctx, ref, limit)
}

func (s *stubService) RecordCharge(ctx context.Context, req app.ChargeRequest) (*app.AccountResult, error) {
	return s.recordCharge(ctx, req)
}

func (s *stubService) ListCustomers(ctx context.Context) (*app.CustomerListResult, error) {
	return s.listCustomers(ctx)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	handler := NewHandler(&stubService{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	svc := &stubService{}
	handler := NewHandler(svc, "")

	cases := []struct {
		name       string
		kind       core.ErrorKind
		wantStatus int
		wantCode   string
	}{
		{"not found", core.KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", core.KindConflict, http.StatusConflict, "CONFLICT"},
		{"invalid state", core.KindInvalidState, http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"validation", core.KindValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc.getAccount = func(ctx context.Context, ref string) (*app.AccountStatusResult, error) {
				return nil, &core.DomainError{Kind: tc.kind}
			}

			req := httptest.NewRequest(http.MethodGet, "/api/credit/accounts/C001", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if resp := decodeError(t, w); resp.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestOpenAccount_BadAmount(t *testing.T) {
	handler := NewHandler(&stubService{}, "")

	body := `{"customer": "C001", "credit_limit": "not-a-number"}`
	req := httptest.NewRequest(http.MethodPost, "/api/credit/accounts", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", resp.Code)
	}
}

func TestOpenAccount_Created(t *testing.T) {
	svc := &stubService{
		openAccount: func(ctx context.Context, ref string, limit decimal.Decimal) (*app.AccountResult, error) {
			if ref != "C001" || !limit.Equal(decimal.NewFromInt(1000)) {
				t.Errorf("unexpected args: ref=%q limit=%s", ref, limit)
			}
			return &app.AccountResult{
				Customer: &core.Customer{ID: 1, Code: "C001"},
				Account:  &core.CreditAccount{ID: 1, CustomerID: 1, CreditLimit: limit, AvailableCredit: limit},
			}, nil
		},
	}
	handler := NewHandler(svc, "")

	body := `{"customer": "C001", "credit_limit": "1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/credit/accounts", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecordCharge_InvalidJSON(t *testing.T) {
	handler := NewHandler(&stubService{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/credit/charges", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "BAD_REQUEST" {
		t.Errorf("code = %q, want BAD_REQUEST", resp.Code)
	}
}
