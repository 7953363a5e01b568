package app

import "credit-ledger/internal/core"

// CustomerResult is returned by single-customer operations.
type CustomerResult struct {
	Customer *core.Customer
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer
}

// AccountResult is returned by account mutations. Customer is included so
// adapters can render code and name without a second lookup.
type AccountResult struct {
	Customer *core.Customer
	Account  *core.CreditAccount
}

// AccountStatusResult is returned by GetAccount.
type AccountStatusResult struct {
	Customer      *core.Customer
	Account       *core.CreditAccount
	PendingOrders []core.PendingOrder
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Customer  *core.Customer
	Movements []core.CreditMovement
}
