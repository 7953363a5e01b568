// audit recomputes every account balance from the movement log and compares
// it against the cached used/available columns. Any drift means a write path
// skipped the recomputation step and should be treated as a bug.
//
// Usage: go run ./cmd/audit
package main

import (
	"context"
	"log"
	"os"

	"credit-ledger/internal/core"
	"credit-ledger/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type accountRow struct {
	id         int
	customerID int
	limit      decimal.Decimal
	used       decimal.Decimal
	available  decimal.Decimal
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	accounts := loadAccounts(ctx, pool)
	drifted := 0

	for _, a := range accounts {
		movements := loadMovements(ctx, pool, a.id)
		want := core.ComputeBalance(a.limit, movements)

		if !want.UsedCredit.Equal(a.used) || !want.AvailableCredit.Equal(a.available) {
			drifted++
			log.Printf("[DRIFT] account %d (customer %d): cached used=%s available=%s, recomputed used=%s available=%s",
				a.id, a.customerID,
				a.used.StringFixed(2), a.available.StringFixed(2),
				want.UsedCredit.StringFixed(2), want.AvailableCredit.StringFixed(2))
		}
	}

	if drifted > 0 {
		log.Printf("[FAIL] %d of %d accounts drifted from their movement history", drifted, len(accounts))
		os.Exit(1)
	}
	log.Printf("[OK] %d accounts match their movement history", len(accounts))
}

func loadAccounts(ctx context.Context, pool *pgxpool.Pool) []accountRow {
	rows, err := pool.Query(ctx, `
		SELECT id, customer_id, credit_limit, used_credit, available_credit
		FROM credit_accounts
		ORDER BY id`)
	if err != nil {
		log.Fatalf("query accounts: %v", err)
	}
	defer rows.Close()

	var accounts []accountRow
	for rows.Next() {
		var a accountRow
		if err := rows.Scan(&a.id, &a.customerID, &a.limit, &a.used, &a.available); err != nil {
			log.Fatalf("scan account: %v", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("read accounts: %v", err)
	}
	return accounts
}

func loadMovements(ctx context.Context, pool *pgxpool.Pool, accountID int) []core.CreditMovement {
	rows, err := pool.Query(ctx, `
		SELECT type, amount
		FROM credit_movements
		WHERE credit_account_id = $1
		ORDER BY created_at ASC, id ASC`, accountID)
	if err != nil {
		log.Fatalf("query movements for account %d: %v", accountID, err)
	}
	defer rows.Close()

	var movements []core.CreditMovement
	for rows.Next() {
		var m core.CreditMovement
		if err := rows.Scan(&m.Type, &m.Amount); err != nil {
			log.Fatalf("scan movement: %v", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("read movements for account %d: %v", accountID, err)
	}
	return movements
}
