package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"credit-ledger/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE credit_movements, credit_accounts, customers RESTART IDENTITY CASCADE;

		INSERT INTO customers (id, code, name, payment_terms_days) VALUES
		(1, 'C001', 'Acme Wholesale', 30),
		(2, 'C002', 'Borealis Traders', 15);
		SELECT setval('customers_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestOpenAccount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	account, err := svc.OpenAccount(ctx, 1, dec(t, "1000"))
	if err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if !account.UsedCredit.IsZero() {
		t.Errorf("new account used credit = %s, want 0", account.UsedCredit)
	}
	if !account.AvailableCredit.Equal(dec(t, "1000")) {
		t.Errorf("new account available credit = %s, want 1000", account.AvailableCredit)
	}
	if !account.IsActive {
		t.Error("new account should be active")
	}

	// Second account for the same customer must be rejected.
	if _, err := svc.OpenAccount(ctx, 1, dec(t, "500")); !core.IsConflict(err) {
		t.Errorf("duplicate open: got %v, want Conflict", err)
	}

	// Unknown customer.
	if _, err := svc.OpenAccount(ctx, 999, dec(t, "500")); !core.IsNotFound(err) {
		t.Errorf("unknown customer: got %v, want NotFound", err)
	}

	// Non-positive limit.
	if _, err := svc.OpenAccount(ctx, 2, dec(t, "0")); !core.IsValidation(err) {
		t.Errorf("zero limit: got %v, want ValidationError", err)
	}
}

func TestUpdateLimit_LoweringGuard(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "100")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "80"), OrderID: "O1",
	}); err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}

	if _, err := svc.UpdateLimit(ctx, 1, dec(t, "70")); !core.IsInvalidState(err) {
		t.Errorf("lowering below used credit: got %v, want InvalidState", err)
	}

	account, err := svc.UpdateLimit(ctx, 1, dec(t, "80"))
	if err != nil {
		t.Fatalf("UpdateLimit to exactly used credit failed: %v", err)
	}
	if !account.AvailableCredit.IsZero() {
		t.Errorf("available credit = %s, want 0", account.AvailableCredit)
	}

	if _, err := svc.UpdateLimit(ctx, 2, dec(t, "100")); !core.IsNotFound(err) {
		t.Errorf("no account: got %v, want NotFound", err)
	}
}

func TestRecordCharge_Preconditions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "100")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}

	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "150"), OrderID: "O1",
	}); !core.IsInvalidState(err) {
		t.Errorf("overdrawing charge: got %v, want InvalidState", err)
	}

	if _, err := svc.SetActive(ctx, 1, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "50"), OrderID: "O1",
	}); !core.IsInvalidState(err) {
		t.Errorf("charge on inactive account: got %v, want InvalidState", err)
	}

	// A failed precondition writes nothing.
	movements, err := svc.ListMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("got %d movements after failed charges, want 0", len(movements))
	}
}

func TestRecordCharge_DuplicateOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "100"), OrderID: "O1",
	}); err != nil {
		t.Fatalf("first RecordCharge failed: %v", err)
	}

	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "50"), OrderID: "O1",
	}); !core.IsConflict(err) {
		t.Fatalf("second charge for O1: got %v, want Conflict", err)
	}

	account, err := svc.GetAccountByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccountByCustomer failed: %v", err)
	}
	if !account.Account.UsedCredit.Equal(dec(t, "100")) {
		t.Errorf("used credit = %s, want 100 after rejected duplicate", account.Account.UsedCredit)
	}
}

func TestAdjust(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}

	if _, err := svc.Adjust(ctx, core.AdjustmentInput{
		CustomerID: 1, Amount: dec(t, "50"),
	}); !core.IsValidation(err) {
		t.Errorf("missing reason: got %v, want ValidationError", err)
	}

	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "100"), OrderID: "O1",
	}); err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}

	// An adjustment overshooting negative clamps used credit at zero.
	account, err := svc.Adjust(ctx, core.AdjustmentInput{
		CustomerID: 1, Amount: dec(t, "-500"), Reason: "misposted invoice correction",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if !account.UsedCredit.IsZero() {
		t.Errorf("used credit after overshoot = %s, want 0", account.UsedCredit)
	}
	if !account.AvailableCredit.Equal(dec(t, "1000")) {
		t.Errorf("available credit = %s, want 1000", account.AvailableCredit)
	}
}

func TestReservationLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}

	account, err := svc.ReserveCredit(ctx, core.ReserveInput{
		CustomerID: 1, Amount: dec(t, "200"), OrderID: "O1",
	})
	if err != nil {
		t.Fatalf("ReserveCredit failed: %v", err)
	}
	if !account.UsedCredit.Equal(dec(t, "200")) {
		t.Errorf("used credit after reserve = %s, want 200", account.UsedCredit)
	}

	// Charging the reserved order converts the reservation: the hold is
	// released and only the charge remains against the balance.
	account, err = svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "150"), OrderID: "O1",
	})
	if err != nil {
		t.Fatalf("RecordCharge after reserve failed: %v", err)
	}
	if !account.UsedCredit.Equal(dec(t, "150")) {
		t.Errorf("used credit after conversion = %s, want 150", account.UsedCredit)
	}

	// No reservation left to cancel.
	if _, err := svc.CancelReservation(ctx, 1, "O1", ""); !core.IsInvalidState(err) {
		t.Errorf("cancel with nothing reserved: got %v, want InvalidState", err)
	}

	// A cancelled reservation restores available credit.
	if _, err := svc.ReserveCredit(ctx, core.ReserveInput{
		CustomerID: 1, Amount: dec(t, "300"), OrderID: "O2",
	}); err != nil {
		t.Fatalf("second ReserveCredit failed: %v", err)
	}
	account, err = svc.CancelReservation(ctx, 1, "O2", "")
	if err != nil {
		t.Fatalf("CancelReservation failed: %v", err)
	}
	if !account.UsedCredit.Equal(dec(t, "150")) {
		t.Errorf("used credit after cancellation = %s, want 150", account.UsedCredit)
	}
}

func TestBalanceCache_MatchesRecomputation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := svc.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	due := time.Now().AddDate(0, 0, 30)
	if _, err := svc.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "400"), OrderID: "O1", DueDate: &due,
	}); err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}
	if _, err := allocator.RegisterPayment(ctx, core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "250.50"), PaymentMethod: "transfer",
	}); err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}
	if _, err := svc.Adjust(ctx, core.AdjustmentInput{
		CustomerID: 1, Amount: dec(t, "-10"), Reason: "goodwill discount",
	}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	// The stored columns are a cache; rederiving from the movement log must
	// agree with them exactly.
	status, err := svc.GetAccountByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccountByCustomer failed: %v", err)
	}
	movements, err := svc.ListMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}

	derived := core.ComputeBalance(status.Account.CreditLimit, movements)
	if !derived.UsedCredit.Equal(status.Account.UsedCredit) {
		t.Errorf("cache drift: stored used %s, derived %s",
			status.Account.UsedCredit, derived.UsedCredit)
	}
	if !derived.AvailableCredit.Equal(status.Account.AvailableCredit) {
		t.Errorf("cache drift: stored available %s, derived %s",
			status.Account.AvailableCredit, derived.AvailableCredit)
	}
}
