package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentInput is the collections layer's register-payment request.
//
// When ApplyToOrders is empty the payment is allocated FIFO across the
// account's outstanding charges. When it is supplied, each listed charge's
// full remaining pending amount is released regardless of the payment amount
// (direct mode intentionally does not cap by the payment — see DESIGN.md).
//
// IdempotencyKey is optional. When present it maps 1:1 to the movement batch:
// replaying the same key fails with Conflict and writes nothing.
type PaymentInput struct {
	CustomerID     int
	Amount         decimal.Decimal
	PaymentMethod  string
	Reference      string
	Notes          string
	ApplyToOrders  []string
	IdempotencyKey string
	CreatedBy      string
}

// PaymentResult reports what one RegisterPayment call committed.
type PaymentResult struct {
	Payment  CreditMovement   `json:"payment"`
	Releases []CreditMovement `json:"releases"`
	Balance  Balance          `json:"balance"`
}

// AllocationStep is one planned release: amount to release against a charge.
type AllocationStep struct {
	OrderID string
	Amount  decimal.Decimal
}

// PlanAllocation applies a payment to outstanding charges oldest-first and
// returns the releases to emit. Charges must already be ordered by
// (created_at, id) ascending — the store's authoritative order. Fully
// released charges are skipped; a release never exceeds a charge's pending
// amount, so over-release is impossible by construction. Any remainder of a
// payment larger than total outstanding debt is simply left unallocated.
func PlanAllocation(amount decimal.Decimal, charges []OutstandingCharge) []AllocationStep {
	remaining := round2(amount)
	var steps []AllocationStep
	for _, charge := range charges {
		if !remaining.IsPositive() {
			break
		}
		pending := charge.Pending()
		if !pending.IsPositive() {
			continue
		}
		toRelease := decimal.Min(remaining, pending)
		steps = append(steps, AllocationStep{OrderID: charge.OrderID, Amount: toRelease})
		remaining = round2(remaining.Sub(toRelease))
	}
	return steps
}

// PaymentAllocator records customer payments and allocates them across
// outstanding charges. Steps — payment insert, release inserts, balance
// recomputation, cached-column update — commit as a single transaction:
// readers never observe a payment without its releases and balance update.
type PaymentAllocator interface {
	RegisterPayment(ctx context.Context, input PaymentInput) (*PaymentResult, error)
}

type paymentAllocator struct {
	pool *pgxpool.Pool
}

func NewPaymentAllocator(pool *pgxpool.Pool) PaymentAllocator {
	return &paymentAllocator{pool: pool}
}

func (a *paymentAllocator) RegisterPayment(ctx context.Context, input PaymentInput) (*PaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, validationf("payment amount must be positive, got %s", input.Amount)
	}
	if input.PaymentMethod == "" {
		return nil, validationf("payment method is required")
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	amount := round2(input.Amount)

	// The PAYMENT movement always records the full payment amount, whether or
	// not all of it ends up matched to charges. It is inserted first so a
	// replayed idempotency key aborts before any release is written.
	payment, err := a.insertPaymentTx(ctx, tx, account.ID, amount, input)
	if err != nil {
		return nil, err
	}

	charges, err := outstandingChargesQ(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}

	var steps []AllocationStep
	if len(input.ApplyToOrders) > 0 {
		steps, err = directReleases(charges, input.ApplyToOrders)
		if err != nil {
			return nil, err
		}
	} else {
		steps = PlanAllocation(amount, charges)
	}

	releases := make([]CreditMovement, 0, len(steps))
	for _, step := range steps {
		orderID := step.OrderID
		release := CreditMovement{
			CreditAccountID: account.ID,
			Type:            MovementRelease,
			Amount:          step.Amount,
			OrderID:         &orderID,
			Reference:       input.Reference,
			CreatedBy:       input.CreatedBy,
		}
		if err := insertMovementTx(ctx, tx, &release); err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}

	bal, err := recomputeBalanceTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return &PaymentResult{Payment: *payment, Releases: releases, Balance: bal}, nil
}

// insertPaymentTx writes the PAYMENT movement. With an idempotency key the
// insert uses ON CONFLICT DO NOTHING over the partial unique index: a replay
// yields no row and surfaces as Conflict before anything else is written.
func (a *paymentAllocator) insertPaymentTx(ctx context.Context, tx pgx.Tx, accountID int, amount decimal.Decimal, input PaymentInput) (*CreditMovement, error) {
	payment := &CreditMovement{
		CreditAccountID: accountID,
		Type:            MovementPayment,
		Amount:          amount,
		PaymentMethod:   input.PaymentMethod,
		Reference:       input.Reference,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
	}

	if input.IdempotencyKey == "" {
		if err := insertMovementTx(ctx, tx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	key := input.IdempotencyKey
	payment.IdempotencyKey = &key
	err := tx.QueryRow(ctx, `
		INSERT INTO credit_movements
			(credit_account_id, type, amount, payment_method, reference, notes,
			 idempotency_key, created_by)
		VALUES ($1, 'PAYMENT', $2, $3, $4, $5, $6, $7)
		ON CONFLICT (credit_account_id, idempotency_key) WHERE idempotency_key IS NOT NULL
		DO NOTHING
		RETURNING id, created_at
	`, accountID, amount, input.PaymentMethod, input.Reference, input.Notes,
		key, input.CreatedBy,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conflictf("duplicate payment: idempotency key %s already used", key)
		}
		return nil, fmt.Errorf("failed to insert payment movement: %w", err)
	}
	return payment, nil
}

// directReleases builds the release set for direct mode: every listed order
// must have been charged on this account, and each one's entire pending
// amount is released. Orders already fully released are skipped.
func directReleases(charges []OutstandingCharge, orderIDs []string) ([]AllocationStep, error) {
	byOrder := make(map[string][]OutstandingCharge, len(charges))
	for _, c := range charges {
		byOrder[c.OrderID] = append(byOrder[c.OrderID], c)
	}

	var steps []AllocationStep
	for _, orderID := range orderIDs {
		matched, ok := byOrder[orderID]
		if !ok {
			return nil, notFoundf("order %s has no charge on this account", orderID)
		}
		for _, charge := range matched {
			pending := charge.Pending()
			if !pending.IsPositive() {
				continue
			}
			steps = append(steps, AllocationStep{OrderID: orderID, Amount: pending})
		}
	}
	return steps, nil
}
