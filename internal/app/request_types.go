package app

import "github.com/shopspring/decimal"

// CreateCustomerRequest is the input for creating a new customer.
type CreateCustomerRequest struct {
	Code             string
	Name             string
	Email            string
	Phone            string
	Address          string
	PaymentTermsDays int
}

// ChargeRequest is the input for recording a charge against an account.
type ChargeRequest struct {
	CustomerRef string
	OrderID     string
	Amount      decimal.Decimal
	DueDate     string // YYYY-MM-DD; empty means "derive from term days"
	TermDays    int    // zero means "use the customer's payment terms"
	Notes       string
	CreatedBy   string
}

// ReserveRequest is the input for holding credit against an order.
type ReserveRequest struct {
	CustomerRef string
	OrderID     string
	Amount      decimal.Decimal
	CreatedBy   string
}

// PaymentRequest is the input for registering a customer payment.
type PaymentRequest struct {
	CustomerRef    string
	Amount         decimal.Decimal
	PaymentMethod  string
	Reference      string
	Notes          string
	ApplyToOrders  []string // empty means oldest-due-first allocation
	IdempotencyKey string
	CreatedBy      string
}

// AdjustmentRequest is the input for a manual signed correction.
type AdjustmentRequest struct {
	CustomerRef string
	Amount      decimal.Decimal // signed; negative reduces used credit
	Reason      string
	CreatedBy   string
}
