package core_test

import (
	"context"
	"testing"

	"credit-ledger/internal/core"

	"github.com/google/uuid"
)

func TestRegisterPayment_FIFO(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := accounts.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	for _, c := range []struct{ order, amount string }{
		{"O1", "100"}, {"O2", "50"}, {"O3", "30"},
	} {
		if _, err := accounts.RecordCharge(ctx, core.ChargeInput{
			CustomerID: 1, Amount: dec(t, c.amount), OrderID: c.order,
		}); err != nil {
			t.Fatalf("RecordCharge %s failed: %v", c.order, err)
		}
	}

	result, err := allocator.RegisterPayment(ctx, core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "120"), PaymentMethod: "transfer",
	})
	if err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}

	if !result.Payment.Amount.Equal(dec(t, "120")) {
		t.Errorf("payment amount = %s, want 120", result.Payment.Amount)
	}
	if len(result.Releases) != 2 {
		t.Fatalf("got %d releases, want 2", len(result.Releases))
	}
	if *result.Releases[0].OrderID != "O1" || !result.Releases[0].Amount.Equal(dec(t, "100")) {
		t.Errorf("first release = %s against %s, want 100 against O1",
			result.Releases[0].Amount, *result.Releases[0].OrderID)
	}
	if *result.Releases[1].OrderID != "O2" || !result.Releases[1].Amount.Equal(dec(t, "20")) {
		t.Errorf("second release = %s against %s, want 20 against O2",
			result.Releases[1].Amount, *result.Releases[1].OrderID)
	}

	// O1 settled, O2 partially released, O3 untouched.
	status, err := accounts.GetAccountByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccountByCustomer failed: %v", err)
	}
	wantPending := map[string]string{"O2": "30", "O3": "30"}
	if len(status.PendingOrders) != len(wantPending) {
		t.Fatalf("got %d pending orders, want %d: %+v",
			len(status.PendingOrders), len(wantPending), status.PendingOrders)
	}
	for _, po := range status.PendingOrders {
		want, ok := wantPending[po.OrderID]
		if !ok {
			t.Errorf("unexpected pending order %s", po.OrderID)
			continue
		}
		if !po.PendingAmount.Equal(dec(t, want)) {
			t.Errorf("pending for %s = %s, want %s", po.OrderID, po.PendingAmount, want)
		}
	}
}

func TestRegisterPayment_Scenario(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := accounts.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	account, err := accounts.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "400"), OrderID: "O1",
	})
	if err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}
	if !account.UsedCredit.Equal(dec(t, "400")) || !account.AvailableCredit.Equal(dec(t, "600")) {
		t.Errorf("after charge: used %s available %s, want 400/600",
			account.UsedCredit, account.AvailableCredit)
	}

	result, err := allocator.RegisterPayment(ctx, core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "400"), PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}
	if len(result.Releases) != 1 || !result.Releases[0].Amount.Equal(dec(t, "400")) {
		t.Fatalf("releases = %+v, want one release of 400 against O1", result.Releases)
	}
	if !result.Balance.UsedCredit.IsZero() {
		t.Errorf("used credit = %s, want 0", result.Balance.UsedCredit)
	}
	if !result.Balance.AvailableCredit.Equal(dec(t, "1000")) {
		t.Errorf("available credit = %s, want 1000", result.Balance.AvailableCredit)
	}
}

func TestRegisterPayment_DirectMode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := accounts.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	for _, c := range []struct{ order, amount string }{{"O1", "500"}, {"O2", "500"}} {
		if _, err := accounts.RecordCharge(ctx, core.ChargeInput{
			CustomerID: 1, Amount: dec(t, c.amount), OrderID: c.order,
		}); err != nil {
			t.Fatalf("RecordCharge %s failed: %v", c.order, err)
		}
	}

	// Direct mode releases each listed charge in full; the payment amount
	// does not cap the releases.
	result, err := allocator.RegisterPayment(ctx, core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "10"), PaymentMethod: "transfer",
		ApplyToOrders: []string{"O1", "O2"},
	})
	if err != nil {
		t.Fatalf("RegisterPayment failed: %v", err)
	}
	if len(result.Releases) != 2 {
		t.Fatalf("got %d releases, want 2", len(result.Releases))
	}
	for i, want := range []string{"O1", "O2"} {
		if *result.Releases[i].OrderID != want || !result.Releases[i].Amount.Equal(dec(t, "500")) {
			t.Errorf("release %d = %s against %s, want 500 against %s",
				i, result.Releases[i].Amount, *result.Releases[i].OrderID, want)
		}
	}

	status, err := accounts.GetAccountByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccountByCustomer failed: %v", err)
	}
	if len(status.PendingOrders) != 0 {
		t.Errorf("pending orders = %+v, want none", status.PendingOrders)
	}
}

func TestRegisterPayment_DirectModeUnknownOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := accounts.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if _, err := accounts.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "100"), OrderID: "O1",
	}); err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}

	_, err := allocator.RegisterPayment(ctx, core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "100"), PaymentMethod: "transfer",
		ApplyToOrders: []string{"O1", "O9"},
	})
	if !core.IsNotFound(err) {
		t.Fatalf("unknown order: got %v, want NotFound", err)
	}

	// The aborted payment left no movements behind: the transaction rolled
	// back the PAYMENT insert along with everything else.
	movements, err := accounts.ListMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	for _, m := range movements {
		if m.Type == core.MovementPayment || m.Type == core.MovementRelease {
			t.Errorf("found %s movement after failed payment", m.Type)
		}
	}
}

func TestRegisterPayment_IdempotencyKey(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	accounts := core.NewCreditAccountService(pool)
	allocator := core.NewPaymentAllocator(pool)
	ctx := context.Background()

	if _, err := accounts.OpenAccount(ctx, 1, dec(t, "1000")); err != nil {
		t.Fatalf("OpenAccount failed: %v", err)
	}
	if _, err := accounts.RecordCharge(ctx, core.ChargeInput{
		CustomerID: 1, Amount: dec(t, "200"), OrderID: "O1",
	}); err != nil {
		t.Fatalf("RecordCharge failed: %v", err)
	}

	key := uuid.NewString()
	input := core.PaymentInput{
		CustomerID: 1, Amount: dec(t, "200"), PaymentMethod: "transfer",
		IdempotencyKey: key,
	}

	if _, err := allocator.RegisterPayment(ctx, input); err != nil {
		t.Fatalf("first RegisterPayment failed: %v", err)
	}
	if _, err := allocator.RegisterPayment(ctx, input); !core.IsConflict(err) {
		t.Fatalf("replayed payment: got %v, want Conflict", err)
	}

	var payments int
	err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM credit_movements WHERE type = 'PAYMENT'",
	).Scan(&payments)
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if payments != 1 {
		t.Errorf("got %d PAYMENT movements, want 1", payments)
	}
}
