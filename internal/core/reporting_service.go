package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// OverdueCharge is one past-due charge with its remaining balance and age.
type OverdueCharge struct {
	OrderID       string          `json:"order_id"`
	ChargedAmount decimal.Decimal `json:"charged_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
}

// OverdueAccount groups a customer's past-due charges with their total.
type OverdueAccount struct {
	CustomerID   int             `json:"customer_id"`
	CustomerCode string          `json:"customer_code"`
	CustomerName string          `json:"customer_name"`
	TotalOverdue decimal.Decimal `json:"total_overdue"`
	Charges      []OverdueCharge `json:"charges"`
}

// OverdueReport is one page of the collections report, customers sorted by
// TotalOverdue descending. Pagination happens in memory: the aging
// aggregation needs the full scan anyway.
type OverdueReport struct {
	Accounts      []OverdueAccount `json:"accounts"`
	TotalAccounts int              `json:"total_accounts"`
	Page          int              `json:"page"`
	PageSize      int              `json:"page_size"`
}

// PortfolioSummary aggregates risk figures over all active accounts.
type PortfolioSummary struct {
	TotalAccounts        int             `json:"total_accounts"`
	TotalCreditLimit     decimal.Decimal `json:"total_credit_limit"`
	TotalUsedCredit      decimal.Decimal `json:"total_used_credit"`
	TotalAvailableCredit decimal.Decimal `json:"total_available_credit"`
	AccountsWithDebt     int             `json:"accounts_with_debt"`
	AccountsOverdue      int             `json:"accounts_overdue"`
	UtilizationRate      decimal.Decimal `json:"utilization_rate"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides the read-only collections and risk queries. No
// method here mutates state or touches the cached balance columns beyond
// reading them.
type ReportingService interface {
	// GetOverdueAccounts returns customers with past-due charges carrying a
	// positive pending balance, optionally filtered by payment term.
	// Deactivated accounts are included: outstanding debt stays visible to
	// collections regardless of the account's lifecycle state.
	GetOverdueAccounts(ctx context.Context, termDays *int, page, pageSize int) (*OverdueReport, error)

	// GetPortfolioSummary aggregates limits, usage, and overdue counts over
	// all active accounts.
	GetPortfolioSummary(ctx context.Context) (*PortfolioSummary, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

// overdueChargeRow is the raw join of a past-due charge with its customer and
// accumulated releases, before the in-memory aging pass.
type overdueChargeRow struct {
	CustomerID   int
	CustomerCode string
	CustomerName string
	OrderID      string
	Amount       decimal.Decimal
	Released     decimal.Decimal
	DueDate      time.Time
}

// activeOnly scopes the portfolio's overdue count to active accounts; the
// collections report passes false so deactivating a delinquent customer never
// hides their outstanding debt.
func (s *reportingService) fetchOverdueCharges(ctx context.Context, now time.Time, termDays *int, activeOnly bool) ([]overdueChargeRow, error) {
	q := `
		SELECT a.customer_id, cu.code, cu.name, c.order_id, c.amount,
		       COALESCE(r.released, 0), c.due_date
		FROM credit_movements c
		JOIN credit_accounts a ON a.id = c.credit_account_id
		JOIN customers cu      ON cu.id = a.customer_id
		LEFT JOIN (
			SELECT credit_account_id, order_id, SUM(amount) AS released
			FROM credit_movements
			WHERE type = 'RELEASE'
			GROUP BY credit_account_id, order_id
		) r ON r.credit_account_id = c.credit_account_id AND r.order_id = c.order_id
		WHERE c.type = 'CHARGE'
		  AND c.due_date IS NOT NULL
		  AND c.due_date <= $1`
	if activeOnly {
		q += " AND a.is_active = true"
	}

	args := []any{now}
	if termDays != nil {
		args = append(args, *termDays)
		q += fmt.Sprintf(" AND c.term_days = $%d", len(args))
	}
	q += " ORDER BY c.created_at ASC, c.id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue charges: %w", err)
	}
	defer rows.Close()

	var out []overdueChargeRow
	for rows.Next() {
		var r overdueChargeRow
		if err := rows.Scan(&r.CustomerID, &r.CustomerCode, &r.CustomerName,
			&r.OrderID, &r.Amount, &r.Released, &r.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan overdue charge: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// buildOverdueReport performs the aging pass: pending per charge, grouping by
// customer, sort by total overdue descending, then in-memory pagination.
// Split out as a pure function so the aging math is testable without a store.
func buildOverdueReport(now time.Time, rows []overdueChargeRow, page, pageSize int) *OverdueReport {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	byCustomer := make(map[int]*OverdueAccount)
	var order []int
	for _, r := range rows {
		pending := round2(r.Amount.Sub(r.Released))
		if !pending.IsPositive() {
			continue
		}
		acc, ok := byCustomer[r.CustomerID]
		if !ok {
			acc = &OverdueAccount{
				CustomerID:   r.CustomerID,
				CustomerCode: r.CustomerCode,
				CustomerName: r.CustomerName,
			}
			byCustomer[r.CustomerID] = acc
			order = append(order, r.CustomerID)
		}
		acc.Charges = append(acc.Charges, OverdueCharge{
			OrderID:       r.OrderID,
			ChargedAmount: r.Amount,
			PendingAmount: pending,
			DueDate:       r.DueDate,
			DaysOverdue:   int(now.Sub(r.DueDate).Hours() / 24),
		})
		acc.TotalOverdue = round2(acc.TotalOverdue.Add(pending))
	}

	accounts := make([]OverdueAccount, 0, len(order))
	for _, id := range order {
		accounts = append(accounts, *byCustomer[id])
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].TotalOverdue.GreaterThan(accounts[j].TotalOverdue)
	})

	report := &OverdueReport{
		TotalAccounts: len(accounts),
		Page:          page,
		PageSize:      pageSize,
	}
	start := (page - 1) * pageSize
	if start < len(accounts) {
		end := start + pageSize
		if end > len(accounts) {
			end = len(accounts)
		}
		report.Accounts = accounts[start:end]
	}
	return report
}

func (s *reportingService) GetOverdueAccounts(ctx context.Context, termDays *int, page, pageSize int) (*OverdueReport, error) {
	now := time.Now()
	rows, err := s.fetchOverdueCharges(ctx, now, termDays, false)
	if err != nil {
		return nil, err
	}
	return buildOverdueReport(now, rows, page, pageSize), nil
}

func (s *reportingService) GetPortfolioSummary(ctx context.Context) (*PortfolioSummary, error) {
	summary := &PortfolioSummary{GeneratedAt: time.Now()}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(credit_limit), 0),
		       COALESCE(SUM(used_credit), 0),
		       COALESCE(SUM(available_credit), 0),
		       COUNT(*) FILTER (WHERE used_credit > 0)
		FROM credit_accounts
		WHERE is_active = true
	`).Scan(
		&summary.TotalAccounts, &summary.TotalCreditLimit,
		&summary.TotalUsedCredit, &summary.TotalAvailableCredit,
		&summary.AccountsWithDebt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate portfolio totals: %w", err)
	}

	// Overdue accounts reuse the aging pass from the collections report,
	// scoped to active accounts like the rest of the summary.
	rows, err := s.fetchOverdueCharges(ctx, summary.GeneratedAt, nil, true)
	if err != nil {
		return nil, err
	}
	summary.AccountsOverdue = countOverdueCustomers(rows)
	summary.UtilizationRate = utilizationRate(summary.TotalUsedCredit, summary.TotalCreditLimit)
	return summary, nil
}

func countOverdueCustomers(rows []overdueChargeRow) int {
	seen := make(map[int]bool)
	for _, r := range rows {
		if round2(r.Amount.Sub(r.Released)).IsPositive() {
			seen[r.CustomerID] = true
		}
	}
	return len(seen)
}

// utilizationRate is usedCredit/creditLimit as a percentage, zero when the
// portfolio has no credit extended.
func utilizationRate(used, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return decimal.Zero
	}
	return round2(used.Div(limit).Mul(decimal.NewFromInt(100)))
}
