package app

import (
	"context"
	"strconv"
	"time"

	"credit-ledger/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type appService struct {
	pool      *pgxpool.Pool
	customers core.CustomerService
	accounts  core.CreditAccountService
	payments  core.PaymentAllocator
	reports   core.ReportingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	customers core.CustomerService,
	accounts core.CreditAccountService,
	payments core.PaymentAllocator,
	reports core.ReportingService,
) ApplicationService {
	return &appService{
		pool:      pool,
		customers: customers,
		accounts:  accounts,
		payments:  payments,
		reports:   reports,
	}
}

// resolveCustomer accepts a numeric customer ID or a customer code.
func (s *appService) resolveCustomer(ctx context.Context, ref string) (*core.Customer, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return s.customers.GetCustomer(ctx, id)
	}
	return s.customers.GetCustomerByCode(ctx, ref)
}

// parseDueDate validates an optional YYYY-MM-DD due date.
func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, core.Validationf("invalid due date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

func (s *appService) ListCustomers(ctx context.Context) (*CustomerListResult, error) {
	customers, err := s.customers.GetCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error) {
	c, err := s.customers.CreateCustomer(ctx, req.Code, req.Name, req.Email, req.Phone,
		req.Address, req.PaymentTermsDays)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

func (s *appService) GetCustomer(ctx context.Context, ref string) (*CustomerResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

func (s *appService) OpenAccount(ctx context.Context, ref string, creditLimit decimal.Decimal) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.OpenAccount(ctx, c.ID, creditLimit)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) GetAccount(ctx context.Context, ref string) (*AccountStatusResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	status, err := s.accounts.GetAccountByCustomer(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &AccountStatusResult{
		Customer:      c,
		Account:       status.Account,
		PendingOrders: status.PendingOrders,
	}, nil
}

func (s *appService) UpdateCreditLimit(ctx context.Context, ref string, newLimit decimal.Decimal) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.UpdateLimit(ctx, c.ID, newLimit)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) SetAccountActive(ctx context.Context, ref string, active bool) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.SetActive(ctx, c.ID, active)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) RecordCharge(ctx context.Context, req ChargeRequest) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, req.CustomerRef)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	// Fall back to the customer's payment terms when the caller gave neither
	// an explicit due date nor a term.
	var termDays *int
	if req.TermDays > 0 {
		termDays = &req.TermDays
	} else if dueDate == nil {
		termDays = &c.PaymentTermsDays
	}

	account, err := s.accounts.RecordCharge(ctx, core.ChargeInput{
		CustomerID: c.ID,
		Amount:     req.Amount,
		OrderID:    req.OrderID,
		DueDate:    dueDate,
		TermDays:   termDays,
		Notes:      req.Notes,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) ReserveCredit(ctx context.Context, req ReserveRequest) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, req.CustomerRef)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.ReserveCredit(ctx, core.ReserveInput{
		CustomerID: c.ID,
		Amount:     req.Amount,
		OrderID:    req.OrderID,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) CancelReservation(ctx context.Context, ref, orderID, createdBy string) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.CancelReservation(ctx, c.ID, orderID, createdBy)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) RegisterPayment(ctx context.Context, req PaymentRequest) (*core.PaymentResult, error) {
	c, err := s.resolveCustomer(ctx, req.CustomerRef)
	if err != nil {
		return nil, err
	}
	return s.payments.RegisterPayment(ctx, core.PaymentInput{
		CustomerID:     c.ID,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Reference:      req.Reference,
		Notes:          req.Notes,
		ApplyToOrders:  req.ApplyToOrders,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      req.CreatedBy,
	})
}

func (s *appService) Adjust(ctx context.Context, req AdjustmentRequest) (*AccountResult, error) {
	c, err := s.resolveCustomer(ctx, req.CustomerRef)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.Adjust(ctx, core.AdjustmentInput{
		CustomerID: c.ID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return &AccountResult{Customer: c, Account: account}, nil
}

func (s *appService) ListMovements(ctx context.Context, ref string) (*MovementListResult, error) {
	c, err := s.resolveCustomer(ctx, ref)
	if err != nil {
		return nil, err
	}
	movements, err := s.accounts.ListMovements(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &MovementListResult{Customer: c, Movements: movements}, nil
}

func (s *appService) GetOverdueAccounts(ctx context.Context, termDays *int, page, pageSize int) (*core.OverdueReport, error) {
	return s.reports.GetOverdueAccounts(ctx, termDays, page, pageSize)
}

func (s *appService) GetPortfolioSummary(ctx context.Context) (*core.PortfolioSummary, error) {
	return s.reports.GetPortfolioSummary(ctx)
}
