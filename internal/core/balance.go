package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Balance is the derived pair of cached account fields.
// Invariant: UsedCredit + AvailableCredit == CreditLimit, both rounded to 2dp.
type Balance struct {
	UsedCredit      decimal.Decimal `json:"used_credit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
}

// round2 rounds to 2 decimal places. All monetary arithmetic applies it after
// every addition and subtraction so that balances computed anywhere in the
// system compare equal.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeBalance rederives used and available credit from the complete
// movement history of an account. It is a pure function: callers persist the
// result, the calculator never mutates anything. Used credit is clamped to
// zero after the sum — an ADJUSTMENT large enough to overshoot negative
// leaves the account at exactly zero.
func ComputeBalance(creditLimit decimal.Decimal, movements []CreditMovement) Balance {
	used := decimal.Zero
	for _, m := range movements {
		sign, ok := balanceSign[m.Type]
		if !ok {
			continue
		}
		used = round2(used.Add(m.Amount.Mul(decimal.NewFromInt(sign))))
	}
	if used.IsNegative() {
		used = decimal.Zero
	}
	return Balance{
		UsedCredit:      used,
		AvailableCredit: round2(creditLimit.Sub(used)),
	}
}

// recomputeBalanceTx rereads the account's full movement history inside the
// caller's transaction, recomputes the balance, and writes the cached
// columns. Every movement insertion that affects balance must be followed by
// this call within the same transaction, so readers never observe a movement
// without its balance update.
func recomputeBalanceTx(ctx context.Context, tx pgx.Tx, accountID int) (Balance, error) {
	var creditLimit decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT credit_limit FROM credit_accounts WHERE id = $1", accountID,
	).Scan(&creditLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, notFoundf("credit account %d not found", accountID)
		}
		return Balance{}, fmt.Errorf("failed to fetch credit limit: %w", err)
	}

	movements, err := listMovementsQ(ctx, tx, accountID)
	if err != nil {
		return Balance{}, err
	}

	bal := ComputeBalance(creditLimit, movements)

	_, err = tx.Exec(ctx, `
		UPDATE credit_accounts
		SET used_credit = $1, available_credit = $2, updated_at = NOW()
		WHERE id = $3
	`, bal.UsedCredit, bal.AvailableCredit, accountID)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to persist recomputed balance: %w", err)
	}
	return bal, nil
}
