// Package repository provides postgres persistence for customers.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taller_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Customer is a persisted customer row. Cedula is the national ID and is
// unique across customers.
type Customer struct {
	ID        uuid.UUID
	FullName  string
	Cedula    string
	Phone     *string
	Email     *string
	Address   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides customer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new customers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `c.id, c.full_name, c.cedula, c.phone, c.email, c.address, c.created_at, c.updated_at`

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, c *Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, full_name, cedula, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.FullName, c.Cedula, c.Phone, c.Email, c.Address, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a customer with this cedula already exists")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to create customer", err)
	}
	return nil
}

// GetByID returns a customer by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM customers c WHERE c.id = $1`, customerColumns), id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get customer", err)
	}
	return c, nil
}

// GetByCedula returns a customer by cedula. Intake uses it to reuse the
// existing record when a returning customer brings a new device.
func (r *Repository) GetByCedula(ctx context.Context, cedula string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM customers c WHERE c.cedula = $1`, customerColumns), cedula)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get customer", err)
	}
	return c, nil
}

// List returns customers ordered by name, optionally filtered by a search
// term against name, cedula and phone.
func (r *Repository) List(ctx context.Context, search string) ([]Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers c`, customerColumns)
	var args []any

	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` WHERE c.full_name ILIKE $1 OR c.cedula ILIKE $1 OR c.phone ILIKE $1`
	}
	query += ` ORDER BY c.full_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list customers", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan customer", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list customers", err)
	}
	return out, nil
}

// Update persists a full customer row.
func (r *Repository) Update(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET full_name = $2, cedula = $3, phone = $4, email = $5, address = $6, updated_at = now()
		WHERE id = $1`,
		c.ID, c.FullName, c.Cedula, c.Phone, c.Email, c.Address,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a customer with this cedula already exists")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update customer", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("customer not found")
	}
	return nil
}

// Delete removes a customer. The service has already verified no orders
// reference them; the FK restriction backs that check up.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("customer has service orders")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete customer", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("customer not found")
	}
	return nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Cedula, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
