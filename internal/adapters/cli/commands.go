package cli

import (
	"fmt"
	"strings"

	"credit-ledger/internal/app"

	"github.com/spf13/cobra"
)

// ── customers ─────────────────────────────────────────────────────────────────

func newCustomersCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Manage customer master data",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active customers",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.ListCustomers(c.Context())
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %-30s %-6s %s\n", "CODE", "NAME", "TERMS", "EMAIL")
			fmt.Println(strings.Repeat("-", 72))
			for _, cu := range result.Customers {
				fmt.Printf("  %-10s %-30s %-6d %s\n", cu.Code, cu.Name, cu.PaymentTermsDays, cu.Email)
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create CODE NAME",
		Short: "Create a customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			email, _ := c.Flags().GetString("email")
			phone, _ := c.Flags().GetString("phone")
			address, _ := c.Flags().GetString("address")
			terms, _ := c.Flags().GetInt("terms")

			result, err := svc.CreateCustomer(c.Context(), app.CreateCustomerRequest{
				Code:             args[0],
				Name:             args[1],
				Email:            email,
				Phone:            phone,
				Address:          address,
				PaymentTermsDays: terms,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created customer %s (id %d)\n", result.Customer.Code, result.Customer.ID)
			return nil
		},
	}
	create.Flags().String("email", "", "Contact email")
	create.Flags().String("phone", "", "Contact phone")
	create.Flags().String("address", "", "Billing address")
	create.Flags().Int("terms", 30, "Payment terms in days")

	cmd.AddCommand(list, create)
	return cmd
}

// ── account ───────────────────────────────────────────────────────────────────

func newAccountCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage credit accounts",
	}

	open := &cobra.Command{
		Use:   "open CUSTOMER LIMIT",
		Short: "Open a credit account",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			limit, err := parseDecimalArg("limit", args[1])
			if err != nil {
				return err
			}
			result, err := svc.OpenAccount(c.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show CUSTOMER",
		Short: "Show account balance and pending orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.GetAccount(c.Context(), args[0])
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			printPendingOrders(result.PendingOrders)
			return nil
		},
	}

	limit := &cobra.Command{
		Use:   "limit CUSTOMER AMOUNT",
		Short: "Change the credit limit",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			newLimit, err := parseDecimalArg("limit", args[1])
			if err != nil {
				return err
			}
			result, err := svc.UpdateCreditLimit(c.Context(), args[0], newLimit)
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}

	activate := &cobra.Command{
		Use:   "activate CUSTOMER",
		Short: "Reactivate a deactivated account",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.SetAccountActive(c.Context(), args[0], true)
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate CUSTOMER",
		Short: "Deactivate an account; blocks new charges, payments still apply",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.SetAccountActive(c.Context(), args[0], false)
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}

	movements := &cobra.Command{
		Use:   "movements CUSTOMER",
		Short: "List the full movement history, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.ListMovements(c.Context(), args[0])
			if err != nil {
				return err
			}
			printMovements(result.Movements)
			return nil
		},
	}

	cmd.AddCommand(open, show, limit, activate, deactivate, movements)
	return cmd
}

// ── charge ────────────────────────────────────────────────────────────────────

func newChargeCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charge CUSTOMER ORDER AMOUNT",
		Short: "Record a charge against an order",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			amount, err := parseDecimalArg("amount", args[2])
			if err != nil {
				return err
			}
			due, _ := c.Flags().GetString("due")
			term, _ := c.Flags().GetInt("term")
			notes, _ := c.Flags().GetString("notes")

			result, err := svc.RecordCharge(c.Context(), app.ChargeRequest{
				CustomerRef: args[0],
				OrderID:     args[1],
				Amount:      amount,
				DueDate:     due,
				TermDays:    term,
				Notes:       notes,
				CreatedBy:   "cli",
			})
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD); overrides --term")
	cmd.Flags().Int("term", 0, "Payment term in days; defaults to the customer's terms")
	cmd.Flags().String("notes", "", "Free-form note stored on the movement")
	return cmd
}

// ── reserve ───────────────────────────────────────────────────────────────────

func newReserveCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reserve CUSTOMER ORDER AMOUNT",
		Short: "Hold credit against an unconfirmed order",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			amount, err := parseDecimalArg("amount", args[2])
			if err != nil {
				return err
			}
			result, err := svc.ReserveCredit(c.Context(), app.ReserveRequest{
				CustomerRef: args[0],
				OrderID:     args[1],
				Amount:      amount,
				CreatedBy:   "cli",
			})
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel CUSTOMER ORDER",
		Short: "Cancel a reservation and return the held credit",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := svc.CancelReservation(c.Context(), args[0], args[1], "cli")
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}
	cmd.AddCommand(cancel)
	return cmd
}

// ── pay ───────────────────────────────────────────────────────────────────────

func newPayCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay CUSTOMER AMOUNT",
		Short: "Register a payment, releasing charges oldest due first",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			amount, err := parseDecimalArg("amount", args[1])
			if err != nil {
				return err
			}
			method, _ := c.Flags().GetString("method")
			reference, _ := c.Flags().GetString("ref")
			orders, _ := c.Flags().GetStringSlice("orders")
			key, _ := c.Flags().GetString("idempotency-key")

			result, err := svc.RegisterPayment(c.Context(), app.PaymentRequest{
				CustomerRef:    args[0],
				Amount:         amount,
				PaymentMethod:  method,
				Reference:      reference,
				ApplyToOrders:  orders,
				IdempotencyKey: key,
				CreatedBy:      "cli",
			})
			if err != nil {
				return err
			}

			fmt.Printf("Payment %d registered: %s\n", result.Payment.ID, result.Payment.Amount.StringFixed(2))
			for _, rel := range result.Releases {
				orderID := ""
				if rel.OrderID != nil {
					orderID = *rel.OrderID
				}
				fmt.Printf("  released %s against %s\n", rel.Amount.StringFixed(2), orderID)
			}
			fmt.Printf("Used %s / available %s\n",
				result.Balance.UsedCredit.StringFixed(2), result.Balance.AvailableCredit.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().String("method", "", "Payment method (TRANSFER, CASH, CHECK, ...)")
	cmd.Flags().String("ref", "", "External payment reference")
	cmd.Flags().StringSlice("orders", nil, "Apply to these orders instead of oldest-first")
	cmd.Flags().String("idempotency-key", "", "Client key to make retries safe")
	return cmd
}

// ── adjust ────────────────────────────────────────────────────────────────────

func newAdjustCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust CUSTOMER AMOUNT",
		Short: "Apply a manual signed correction to used credit",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			amount, err := parseDecimalArg("amount", args[1])
			if err != nil {
				return err
			}
			reason, _ := c.Flags().GetString("reason")

			result, err := svc.Adjust(c.Context(), app.AdjustmentRequest{
				CustomerRef: args[0],
				Amount:      amount,
				Reason:      reason,
				CreatedBy:   "cli",
			})
			if err != nil {
				return err
			}
			printAccount(result.Customer, result.Account)
			return nil
		},
	}
	cmd.Flags().String("reason", "", "Mandatory audit reason for the adjustment")
	return cmd
}

// ── reports ───────────────────────────────────────────────────────────────────

func newOverdueCmd(svc app.ApplicationService) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List customers with past-due charges, worst debtor first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			term, _ := c.Flags().GetInt("term")
			page, _ := c.Flags().GetInt("page")
			size, _ := c.Flags().GetInt("size")

			var termDays *int
			if term > 0 {
				termDays = &term
			}

			report, err := svc.GetOverdueAccounts(c.Context(), termDays, page, size)
			if err != nil {
				return err
			}

			fmt.Printf("  %-10s %-28s %14s %8s\n", "CODE", "NAME", "OVERDUE", "MAXDAYS")
			fmt.Println(strings.Repeat("-", 66))
			for _, a := range report.Accounts {
				maxDays := 0
				for _, ch := range a.Charges {
					if ch.DaysOverdue > maxDays {
						maxDays = ch.DaysOverdue
					}
				}
				fmt.Printf("  %-10s %-28s %14s %8d\n",
					a.CustomerCode, a.CustomerName, a.TotalOverdue.StringFixed(2), maxDays)
			}
			fmt.Printf("\n  page %d of %d customers\n", report.Page, report.TotalAccounts)
			return nil
		},
	}
	cmd.Flags().Int("term", 0, "Only customers with this payment term")
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("size", 20, "Page size")
	return cmd
}

func newPortfolioCmd(svc app.ApplicationService) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Aggregate exposure across all active accounts",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			s, err := svc.GetPortfolioSummary(c.Context())
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(strings.Repeat("=", 50))
			fmt.Println("  PORTFOLIO SUMMARY")
			fmt.Println(strings.Repeat("=", 50))
			fmt.Printf("  %-24s %12d\n", "Active accounts", s.TotalAccounts)
			fmt.Printf("  %-24s %12s\n", "Total credit limit", s.TotalCreditLimit.StringFixed(2))
			fmt.Printf("  %-24s %12s\n", "Total used", s.TotalUsedCredit.StringFixed(2))
			fmt.Printf("  %-24s %12s\n", "Total available", s.TotalAvailableCredit.StringFixed(2))
			fmt.Printf("  %-24s %12d\n", "Accounts with debt", s.AccountsWithDebt)
			fmt.Printf("  %-24s %12d\n", "Accounts overdue", s.AccountsOverdue)
			fmt.Printf("  %-24s %11s%%\n", "Utilization", s.UtilizationRate.StringFixed(2))
			fmt.Println(strings.Repeat("=", 50))
			return nil
		},
	}
}
