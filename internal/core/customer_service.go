package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService manages customer master data. The credit ledger consumes it
// for the "customer exists" precondition on account opening and for report
// grouping; the wider order/delivery modules own the rest of the customer
// lifecycle.
type CustomerService interface {
	CreateCustomer(ctx context.Context, code, name, email, phone, address string, paymentTermsDays int) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int) (*Customer, error)
	GetCustomerByCode(ctx context.Context, code string) (*Customer, error)
	GetCustomers(ctx context.Context) ([]Customer, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

const customerColumns = `
	id, code, name, email, phone, address, payment_terms_days, is_active, created_at`

func scanCustomer(row pgx.Row, c *Customer) error {
	return row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.PaymentTermsDays, &c.IsActive, &c.CreatedAt,
	)
}

func (s *customerService) CreateCustomer(ctx context.Context, code, name, email, phone, address string, paymentTermsDays int) (*Customer, error) {
	if code == "" || name == "" {
		return nil, validationf("customer code and name are required")
	}
	if paymentTermsDays < 0 {
		return nil, validationf("payment terms days must not be negative")
	}

	var c Customer
	err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (code, name, email, phone, address, payment_terms_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+customerColumns+`
	`, code, name, email, phone, address, paymentTermsDays), &c)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, conflictf("customer code %s already exists", code)
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int) (*Customer, error) {
	var c Customer
	err := scanCustomer(s.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1", customerID), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("customer %d not found", customerID)
		}
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	return &c, nil
}

func (s *customerService) GetCustomerByCode(ctx context.Context, code string) (*Customer, error) {
	var c Customer
	err := scanCustomer(s.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE code = $1", code), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("customer %s not found", code)
		}
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	return &c, nil
}

func (s *customerService) GetCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE is_active = true ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
