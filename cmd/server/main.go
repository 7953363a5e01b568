package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "credit-ledger/internal/adapters/web"
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
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	customers := core.NewCustomerService(pool)
	accounts := core.NewCreditAccountService(pool)
	payments := core.NewPaymentAllocator(pool)
	reports := core.NewReportingService(pool)

	svc := app.NewAppService(pool, customers, accounts, payments, reports)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
