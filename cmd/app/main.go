package main

import (
	"context"
	"log"
	"os"

	"credit-ledger/internal/adapters/cli"
	"credit-ledger/internal/app"
	"credit-ledger/internal/core"
	"credit-ledger/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	customers := core.NewCustomerService(pool)
	accounts := core.NewCreditAccountService(pool)
	payments := core.NewPaymentAllocator(pool)
	reports := core.NewReportingService(pool)

	svc := app.NewAppService(pool, customers, accounts, payments, reports)
	os.Exit(cli.Execute(ctx, svc, os.Args[1:]))
}
