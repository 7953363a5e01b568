package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a credit movement. The type, not the sign of the
// stored amount, determines the movement's effect on the account balance.
// ADJUSTMENT is the one exception: it stores a signed amount.
type MovementType string

const (
	MovementReserve    MovementType = "RESERVE"
	MovementCharge     MovementType = "CHARGE"
	MovementRelease    MovementType = "RELEASE"
	MovementPayment    MovementType = "PAYMENT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// balanceSign is the contribution of each movement type to used credit.
// Keeping the type→sign dispatch in one table makes the balance algebra
// testable in one place instead of scattered across conditionals.
// ADJUSTMENT amounts carry their own sign, so the multiplier is +1.
var balanceSign = map[MovementType]int64{
	MovementReserve:    +1,
	MovementCharge:     +1,
	MovementRelease:    -1,
	MovementPayment:    -1,
	MovementAdjustment: +1,
}

// ValidMovementType reports whether t is one of the five known types.
func ValidMovementType(t MovementType) bool {
	_, ok := balanceSign[t]
	return ok
}

type Customer struct {
	ID               int       `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreditAccount is the running-balance account, one per customer.
// UsedCredit and AvailableCredit are caches: they are always rederived from
// the full movement history before being persisted, never adjusted in place.
type CreditAccount struct {
	ID              int             `json:"id"`
	CustomerID      int             `json:"customer_id"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	UsedCredit      decimal.Decimal `json:"used_credit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreditMovement is one immutable, append-only ledger entry.
// Corrections happen via new ADJUSTMENT movements, never by update or delete.
type CreditMovement struct {
	ID              int             `json:"id"`
	CreditAccountID int             `json:"credit_account_id"`
	Type            MovementType    `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	OrderID         *string         `json:"order_id,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	TermDays        *int            `json:"term_days,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by,omitempty"`
}

// PendingOrder is a charge with its outstanding balance as the collections
// UI consumes it: the charge amount minus the sum of its linked releases.
type PendingOrder struct {
	OrderID        string          `json:"order_id"`
	ChargedAmount  decimal.Decimal `json:"charged_amount"`
	ReleasedAmount decimal.Decimal `json:"released_amount"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	ChargedAt      time.Time       `json:"charged_at"`
}

// AccountStatus is a CreditAccount together with its pending orders,
// the read model returned by GetAccountByCustomer.
type AccountStatus struct {
	Account       *CreditAccount `json:"account"`
	PendingOrders []PendingOrder `json:"pending_orders"`
}
