package app

import (
	"context"

	"credit-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Customer-scoped operations take a ref that may be a numeric customer ID or
// a customer code string; the service resolves it either way.
type ApplicationService interface {
	// ListCustomers returns all active customers.
	ListCustomers(ctx context.Context) (*CustomerListResult, error)

	// CreateCustomer creates a new customer record.
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error)

	// GetCustomer returns a single customer by numeric ID or customer code.
	GetCustomer(ctx context.Context, ref string) (*CustomerResult, error)

	// OpenAccount opens the customer's credit account with the given limit.
	// A customer has at most one account; opening a second is a conflict.
	OpenAccount(ctx context.Context, ref string, creditLimit decimal.Decimal) (*AccountResult, error)

	// GetAccount returns the customer's account with its pending orders.
	GetAccount(ctx context.Context, ref string) (*AccountStatusResult, error)

	// UpdateCreditLimit changes the account's credit limit. Lowering the limit
	// below the currently used credit is rejected.
	UpdateCreditLimit(ctx context.Context, ref string, newLimit decimal.Decimal) (*AccountResult, error)

	// SetAccountActive activates or deactivates the account. Inactive accounts
	// reject new charges and reservations; payments remain accepted.
	SetAccountActive(ctx context.Context, ref string, active bool) (*AccountResult, error)

	// RecordCharge consumes credit for a confirmed order. If a reservation
	// exists for the same order it is converted rather than double-counted.
	RecordCharge(ctx context.Context, req ChargeRequest) (*AccountResult, error)

	// ReserveCredit holds credit against an order before it is confirmed.
	ReserveCredit(ctx context.Context, req ReserveRequest) (*AccountResult, error)

	// CancelReservation returns a held reservation to available credit.
	CancelReservation(ctx context.Context, ref, orderID, createdBy string) (*AccountResult, error)

	// RegisterPayment records a payment and releases outstanding charges,
	// oldest due first, or against the explicitly named orders.
	RegisterPayment(ctx context.Context, req PaymentRequest) (*core.PaymentResult, error)

	// Adjust applies a manual signed correction to used credit.
	Adjust(ctx context.Context, req AdjustmentRequest) (*AccountResult, error)

	// ListMovements returns the customer's full movement history, oldest first.
	ListMovements(ctx context.Context, ref string) (*MovementListResult, error)

	// GetOverdueAccounts returns customers with unpaid past-due charges,
	// worst debtor first. termDays optionally filters by payment terms.
	GetOverdueAccounts(ctx context.Context, termDays *int, page, pageSize int) (*core.OverdueReport, error)

	// GetPortfolioSummary returns aggregate exposure across all active accounts.
	GetPortfolioSummary(ctx context.Context) (*core.PortfolioSummary, error)
}
