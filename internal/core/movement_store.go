package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers across pooled and transactional call sites.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const movementColumns = `
	id, credit_account_id, type, amount, order_id, due_date, term_days,
	payment_method, reference, notes, idempotency_key, created_at, created_by`

func scanMovement(row pgx.Row, m *CreditMovement) error {
	return row.Scan(
		&m.ID, &m.CreditAccountID, &m.Type, &m.Amount, &m.OrderID, &m.DueDate,
		&m.TermDays, &m.PaymentMethod, &m.Reference, &m.Notes,
		&m.IdempotencyKey, &m.CreatedAt, &m.CreatedBy,
	)
}

// validateMovement enforces the sign convention: every type stores a
// non-negative magnitude except ADJUSTMENT, which is signed and must be
// non-zero.
func validateMovement(m *CreditMovement) error {
	if !ValidMovementType(m.Type) {
		return validationf("unknown movement type %q", m.Type)
	}
	if m.Type == MovementAdjustment {
		if m.Amount.IsZero() {
			return validationf("adjustment amount must be non-zero")
		}
		return nil
	}
	if !m.Amount.IsPositive() {
		return validationf("%s amount must be positive, got %s", m.Type, m.Amount)
	}
	return nil
}

// insertMovementTx appends one movement inside the caller's transaction and
// fills in the store-assigned id and created_at. Movements are never updated
// or deleted afterwards.
func insertMovementTx(ctx context.Context, tx pgx.Tx, m *CreditMovement) error {
	if err := validateMovement(m); err != nil {
		return err
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO credit_movements
			(credit_account_id, type, amount, order_id, due_date, term_days,
			 payment_method, reference, notes, idempotency_key, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, m.CreditAccountID, m.Type, round2(m.Amount), m.OrderID, m.DueDate,
		m.TermDays, m.PaymentMethod, m.Reference, m.Notes, m.IdempotencyKey,
		m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s movement: %w", m.Type, err)
	}
	return nil
}

// listMovementsQ returns the full movement history of an account in its
// authoritative order: created_at ascending, ties broken by id ascending.
// The id tie-break is what makes FIFO allocation deterministic when several
// movements commit in one transaction and share a created_at.
func listMovementsQ(ctx context.Context, q pgxQuerier, accountID int) ([]CreditMovement, error) {
	rows, err := q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM credit_movements
		WHERE credit_account_id = $1
		ORDER BY created_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []CreditMovement
	for rows.Next() {
		var m CreditMovement
		if err := scanMovement(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// OutstandingCharge is a CHARGE with the sum of its linked releases, the unit
// the payment allocator works over.
type OutstandingCharge struct {
	MovementID int
	OrderID    string
	Amount     decimal.Decimal
	Released   decimal.Decimal
	DueDate    *time.Time
	CreatedAt  time.Time
}

// Pending returns the charge's remaining balance, never negative.
func (c OutstandingCharge) Pending() decimal.Decimal {
	p := round2(c.Amount.Sub(c.Released))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// outstandingChargesQ loads all charges for an account, oldest first, each
// joined with the released amount accumulated against its order id.
func outstandingChargesQ(ctx context.Context, q pgxQuerier, accountID int) ([]OutstandingCharge, error) {
	rows, err := q.Query(ctx, `
		SELECT c.id, c.order_id, c.amount, COALESCE(r.released, 0), c.due_date, c.created_at
		FROM credit_movements c
		LEFT JOIN (
			SELECT order_id, SUM(amount) AS released
			FROM credit_movements
			WHERE credit_account_id = $1 AND type = 'RELEASE'
			GROUP BY order_id
		) r ON r.order_id = c.order_id
		WHERE c.credit_account_id = $1 AND c.type = 'CHARGE'
		ORDER BY c.created_at ASC, c.id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding charges: %w", err)
	}
	defer rows.Close()

	var charges []OutstandingCharge
	for rows.Next() {
		var c OutstandingCharge
		if err := rows.Scan(&c.MovementID, &c.OrderID, &c.Amount, &c.Released, &c.DueDate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outstanding charge: %w", err)
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// pendingOrdersQ derives the per-order pending balances for an account,
// filtering out fully released charges.
func pendingOrdersQ(ctx context.Context, q pgxQuerier, accountID int) ([]PendingOrder, error) {
	charges, err := outstandingChargesQ(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	var pending []PendingOrder
	for _, c := range charges {
		p := c.Pending()
		if !p.IsPositive() {
			continue
		}
		pending = append(pending, PendingOrder{
			OrderID:        c.OrderID,
			ChargedAmount:  c.Amount,
			ReleasedAmount: round2(c.Released),
			PendingAmount:  p,
			DueDate:        c.DueDate,
			ChargedAt:      c.CreatedAt,
		})
	}
	return pending, nil
}

const accountColumns = `
	id, customer_id, credit_limit, used_credit, available_credit, is_active,
	created_at, updated_at`

func scanAccount(row pgx.Row, a *CreditAccount) error {
	return row.Scan(
		&a.ID, &a.CustomerID, &a.CreditLimit, &a.UsedCredit,
		&a.AvailableCredit, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
}

// getAccountByCustomerQ fetches an account by customer id without locking.
func getAccountByCustomerQ(ctx context.Context, q pgxQuerier, customerID int) (*CreditAccount, error) {
	var a CreditAccount
	err := scanAccount(q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM credit_accounts
		WHERE customer_id = $1
	`, customerID), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("no credit account for customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to fetch credit account: %w", err)
	}
	return &a, nil
}

// lockAccountByCustomerTx fetches the account row FOR UPDATE. The account row
// is the serialization point for every balance-mutating operation: holding
// this lock for the duration of the transaction prevents two concurrent
// payments from interleaving their recomputation steps.
func lockAccountByCustomerTx(ctx context.Context, tx pgx.Tx, customerID int) (*CreditAccount, error) {
	var a CreditAccount
	err := scanAccount(tx.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM credit_accounts
		WHERE customer_id = $1
		FOR UPDATE
	`, customerID), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("no credit account for customer %d", customerID)
		}
		return nil, fmt.Errorf("failed to lock credit account: %w", err)
	}
	return &a, nil
}
