// Package cli is the one-shot command adapter. Every command calls the
// ApplicationService and renders the result as a text table or JSON; no
// business logic lives here.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"credit-ledger/internal/app"
	"credit-ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the full command tree around the given service.
func NewRootCmd(svc app.ApplicationService) *cobra.Command {
	root := &cobra.Command{
		Use:           "credit",
		Short:         "Credit ledger back-office tool",
		Long:          "Manage customer credit accounts, record charges and payments, and run portfolio reports against the credit ledger database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCustomersCmd(svc))
	root.AddCommand(newAccountCmd(svc))
	root.AddCommand(newChargeCmd(svc))
	root.AddCommand(newReserveCmd(svc))
	root.AddCommand(newPayCmd(svc))
	root.AddCommand(newAdjustCmd(svc))
	root.AddCommand(newOverdueCmd(svc))
	root.AddCommand(newPortfolioCmd(svc))
	return root
}

// Execute runs the command tree and returns a process exit code.
func Execute(ctx context.Context, svc app.ApplicationService, args []string) int {
	root := NewRootCmd(svc)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// parseDecimalArg parses a positional amount argument.
func parseDecimalArg(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: expected a decimal number", name, raw)
	}
	return d, nil
}

// ── Rendering ─────────────────────────────────────────────────────────────────

func printAccount(c *core.Customer, a *core.CreditAccount) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  CREDIT ACCOUNT — %s (%s)\n", c.Name, c.Code)
	fmt.Println(strings.Repeat("=", 62))
	status := "ACTIVE"
	if !a.IsActive {
		status = "INACTIVE"
	}
	fmt.Printf("  %-12s %15s\n", "Limit", a.CreditLimit.StringFixed(2))
	fmt.Printf("  %-12s %15s\n", "Used", a.UsedCredit.StringFixed(2))
	fmt.Printf("  %-12s %15s\n", "Available", a.AvailableCredit.StringFixed(2))
	fmt.Printf("  %-12s %15s\n", "Status", status)
	fmt.Println(strings.Repeat("=", 62))
}

func printPendingOrders(orders []core.PendingOrder) {
	if len(orders) == 0 {
		fmt.Println("  No pending orders.")
		return
	}
	fmt.Printf("  %-20s %12s %12s %12s\n", "ORDER", "CHARGED", "RELEASED", "PENDING")
	fmt.Println(strings.Repeat("-", 62))
	for _, o := range orders {
		fmt.Printf("  %-20s %12s %12s %12s\n",
			o.OrderID, o.ChargedAmount.StringFixed(2), o.ReleasedAmount.StringFixed(2), o.PendingAmount.StringFixed(2))
	}
}

func printMovements(movements []core.CreditMovement) {
	fmt.Printf("  %-6s %-11s %12s %-20s %s\n", "ID", "TYPE", "AMOUNT", "ORDER", "DATE")
	fmt.Println(strings.Repeat("-", 72))
	for _, m := range movements {
		orderID := ""
		if m.OrderID != nil {
			orderID = *m.OrderID
		}
		fmt.Printf("  %-6d %-11s %12s %-20s %s\n",
			m.ID, m.Type, m.Amount.StringFixed(2), orderID, m.CreatedAt.Format("2006-01-02"))
	}
}
