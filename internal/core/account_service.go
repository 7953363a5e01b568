package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// reservationReleaseRef marks the ADJUSTMENT movements that cancel an order's
// outstanding RESERVE amount. RELEASE movements stay exclusively charge-linked
// so the per-order pending math (charge − Σreleases) is never polluted by
// reservation bookkeeping.
const reservationReleaseRef = "RESERVATION_RELEASE"

// ChargeInput is the order module's entry point payload: a confirmed order
// placed on credit terms becomes a CHARGE against the customer's account.
type ChargeInput struct {
	CustomerID int
	Amount     decimal.Decimal
	OrderID    string
	DueDate    *time.Time
	TermDays   *int // due date defaults to now + TermDays when DueDate is nil
	Notes      string
	CreatedBy  string
}

// ReserveInput holds credit against an order before it is confirmed.
type ReserveInput struct {
	CustomerID int
	Amount     decimal.Decimal
	OrderID    string
	CreatedBy  string
}

// AdjustmentInput is a manual signed correction outside the normal
// charge/payment flow. Reason is mandatory.
type AdjustmentInput struct {
	CustomerID int
	Amount     decimal.Decimal // signed; negative reduces used credit
	Reason     string
	CreatedBy  string
}

// CreditAccountService orchestrates the account lifecycle and every movement
// the account manager owns (RESERVE, CHARGE, ADJUSTMENT). All mutating
// operations run as one transaction: movement insert → full-history balance
// recomputation → cached column update, with the account row locked FOR
// UPDATE throughout.
type CreditAccountService interface {
	OpenAccount(ctx context.Context, customerID int, creditLimit decimal.Decimal) (*CreditAccount, error)
	UpdateLimit(ctx context.Context, customerID int, newLimit decimal.Decimal) (*CreditAccount, error)
	SetActive(ctx context.Context, customerID int, active bool) (*CreditAccount, error)
	Adjust(ctx context.Context, input AdjustmentInput) (*CreditAccount, error)
	RecordCharge(ctx context.Context, input ChargeInput) (*CreditAccount, error)
	ReserveCredit(ctx context.Context, input ReserveInput) (*CreditAccount, error)
	CancelReservation(ctx context.Context, customerID int, orderID, createdBy string) (*CreditAccount, error)
	GetAccountByCustomer(ctx context.Context, customerID int) (*AccountStatus, error)
	ListMovements(ctx context.Context, customerID int) ([]CreditMovement, error)
}

type accountService struct {
	pool *pgxpool.Pool
}

func NewCreditAccountService(pool *pgxpool.Pool) CreditAccountService {
	return &accountService{pool: pool}
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *accountService) OpenAccount(ctx context.Context, customerID int, creditLimit decimal.Decimal) (*CreditAccount, error) {
	if !creditLimit.IsPositive() {
		return nil, validationf("credit limit must be positive, got %s", creditLimit)
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", customerID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check customer %d: %w", customerID, err)
	}
	if !exists {
		return nil, notFoundf("customer %d not found", customerID)
	}

	limit := round2(creditLimit)
	var a CreditAccount
	err = scanAccount(s.pool.QueryRow(ctx, `
		INSERT INTO credit_accounts (customer_id, credit_limit, used_credit, available_credit)
		VALUES ($1, $2, 0, $2)
		RETURNING `+accountColumns+`
	`, customerID, limit), &a)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, conflictf("customer %d already has a credit account", customerID)
		}
		return nil, fmt.Errorf("failed to open credit account: %w", err)
	}
	return &a, nil
}

func (s *accountService) UpdateLimit(ctx context.Context, customerID int, newLimit decimal.Decimal) (*CreditAccount, error) {
	if !newLimit.IsPositive() {
		return nil, validationf("credit limit must be positive, got %s", newLimit)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	limit := round2(newLimit)
	if limit.LessThan(account.UsedCredit) {
		return nil, invalidStatef("cannot lower credit limit to %s: outstanding used credit is %s",
			limit, account.UsedCredit)
	}

	// The limit change and the rederived available credit persist atomically.
	err = scanAccount(tx.QueryRow(ctx, `
		UPDATE credit_accounts
		SET credit_limit = $1, available_credit = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+accountColumns+`
	`, limit, round2(limit.Sub(account.UsedCredit)), account.ID), account)
	if err != nil {
		return nil, fmt.Errorf("failed to update credit limit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit limit update: %w", err)
	}
	return account, nil
}

func (s *accountService) SetActive(ctx context.Context, customerID int, active bool) (*CreditAccount, error) {
	var a CreditAccount
	err := scanAccount(s.pool.QueryRow(ctx, `
		UPDATE credit_accounts
		SET is_active = $1, updated_at = NOW()
		WHERE customer_id = $2
		RETURNING `+accountColumns+`
	`, active, customerID), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("no credit account for customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to update account status: %w", err)
	}
	return &a, nil
}

// ── Movements ────────────────────────────────────────────────────────────────

func (s *accountService) Adjust(ctx context.Context, input AdjustmentInput) (*CreditAccount, error) {
	if input.Amount.IsZero() {
		return nil, validationf("adjustment amount must be non-zero")
	}
	if input.Reason == "" {
		return nil, validationf("adjustment reason is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	// Adjustments are always permitted: there is no balance floor beyond the
	// clamp-to-zero applied during recomputation.
	movement := &CreditMovement{
		CreditAccountID: account.ID,
		Type:            MovementAdjustment,
		Amount:          round2(input.Amount),
		Notes:           input.Reason,
		CreatedBy:       input.CreatedBy,
	}
	if err := insertMovementTx(ctx, tx, movement); err != nil {
		return nil, err
	}

	bal, err := recomputeBalanceTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	account.UsedCredit, account.AvailableCredit = bal.UsedCredit, bal.AvailableCredit
	return account, nil
}

func (s *accountService) RecordCharge(ctx context.Context, input ChargeInput) (*CreditAccount, error) {
	if !input.Amount.IsPositive() {
		return nil, validationf("charge amount must be positive, got %s", input.Amount)
	}
	if input.OrderID == "" {
		return nil, validationf("charge requires an order reference")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, invalidStatef("credit account for customer %d is inactive", input.CustomerID)
	}

	amount := round2(input.Amount)

	// Credit previously held by a RESERVE for this order is freed by the
	// charge, so it counts toward the availability check.
	reserved, err := outstandingReservationTx(ctx, tx, account.ID, input.OrderID)
	if err != nil {
		return nil, err
	}
	effective := round2(account.AvailableCredit.Add(reserved))
	if amount.GreaterThan(effective) {
		return nil, invalidStatef("insufficient credit: charge %s exceeds available %s", amount, effective)
	}
	if reserved.IsPositive() {
		if err := releaseReservationTx(ctx, tx, account.ID, input.OrderID, reserved, input.CreatedBy); err != nil {
			return nil, err
		}
	}

	dueDate := input.DueDate
	if dueDate == nil && input.TermDays != nil {
		d := time.Now().AddDate(0, 0, *input.TermDays)
		dueDate = &d
	}

	orderID := input.OrderID
	movement := &CreditMovement{
		CreditAccountID: account.ID,
		Type:            MovementCharge,
		Amount:          amount,
		OrderID:         &orderID,
		DueDate:         dueDate,
		TermDays:        input.TermDays,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
	}
	if err := insertMovementTx(ctx, tx, movement); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, conflictf("order %s already charged on this account", input.OrderID)
		}
		return nil, err
	}

	bal, err := recomputeBalanceTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit charge: %w", err)
	}

	account.UsedCredit, account.AvailableCredit = bal.UsedCredit, bal.AvailableCredit
	return account, nil
}

func (s *accountService) ReserveCredit(ctx context.Context, input ReserveInput) (*CreditAccount, error) {
	if !input.Amount.IsPositive() {
		return nil, validationf("reservation amount must be positive, got %s", input.Amount)
	}
	if input.OrderID == "" {
		return nil, validationf("reservation requires an order reference")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, invalidStatef("credit account for customer %d is inactive", input.CustomerID)
	}

	amount := round2(input.Amount)
	if amount.GreaterThan(account.AvailableCredit) {
		return nil, invalidStatef("insufficient credit: reservation %s exceeds available %s",
			amount, account.AvailableCredit)
	}

	orderID := input.OrderID
	movement := &CreditMovement{
		CreditAccountID: account.ID,
		Type:            MovementReserve,
		Amount:          amount,
		OrderID:         &orderID,
		CreatedBy:       input.CreatedBy,
	}
	if err := insertMovementTx(ctx, tx, movement); err != nil {
		return nil, err
	}

	bal, err := recomputeBalanceTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	account.UsedCredit, account.AvailableCredit = bal.UsedCredit, bal.AvailableCredit
	return account, nil
}

func (s *accountService) CancelReservation(ctx context.Context, customerID int, orderID, createdBy string) (*CreditAccount, error) {
	if orderID == "" {
		return nil, validationf("cancellation requires an order reference")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccountByCustomerTx(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	reserved, err := outstandingReservationTx(ctx, tx, account.ID, orderID)
	if err != nil {
		return nil, err
	}
	if !reserved.IsPositive() {
		return nil, invalidStatef("order %s has no outstanding reservation", orderID)
	}
	if err := releaseReservationTx(ctx, tx, account.ID, orderID, reserved, createdBy); err != nil {
		return nil, err
	}

	bal, err := recomputeBalanceTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reservation cancellation: %w", err)
	}

	account.UsedCredit, account.AvailableCredit = bal.UsedCredit, bal.AvailableCredit
	return account, nil
}

// outstandingReservationTx returns how much of an order's RESERVE amount has
// not yet been released (released amounts are negative adjustments tagged
// with reservationReleaseRef, so a plain sum yields the remainder).
func outstandingReservationTx(ctx context.Context, tx pgx.Tx, accountID int, orderID string) (decimal.Decimal, error) {
	var reserved decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_movements
		WHERE credit_account_id = $1
		  AND order_id = $2
		  AND (type = 'RESERVE' OR (type = 'ADJUSTMENT' AND reference = $3))
	`, accountID, orderID, reservationReleaseRef).Scan(&reserved)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding reservation: %w", err)
	}
	return round2(reserved), nil
}

func releaseReservationTx(ctx context.Context, tx pgx.Tx, accountID int, orderID string, amount decimal.Decimal, createdBy string) error {
	oid := orderID
	return insertMovementTx(ctx, tx, &CreditMovement{
		CreditAccountID: accountID,
		Type:            MovementAdjustment,
		Amount:          amount.Neg(),
		OrderID:         &oid,
		Reference:       reservationReleaseRef,
		Notes:           fmt.Sprintf("released reservation for order %s", orderID),
		CreatedBy:       createdBy,
	})
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *accountService) GetAccountByCustomer(ctx context.Context, customerID int) (*AccountStatus, error) {
	account, err := getAccountByCustomerQ(ctx, s.pool, customerID)
	if err != nil {
		return nil, err
	}
	pending, err := pendingOrdersQ(ctx, s.pool, account.ID)
	if err != nil {
		return nil, err
	}
	return &AccountStatus{Account: account, PendingOrders: pending}, nil
}

func (s *accountService) ListMovements(ctx context.Context, customerID int) ([]CreditMovement, error) {
	account, err := getAccountByCustomerQ(ctx, s.pool, customerID)
	if err != nil {
		return nil, err
	}
	return listMovementsQ(ctx, s.pool, account.ID)
}
