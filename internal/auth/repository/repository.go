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

// Profile represents a staff member database row.
type Profile struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     *string   `db:"full_name"`
	Role         string    `db:"role"`
	Sede         *string   `db:"sede"`
	BranchPhone  *string   `db:"branch_phone"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const profileNotFoundMsg = "profile not found"

const profileColumns = `id, email, password_hash, full_name, role, sede, branch_phone, created_at, updated_at`

// Repository provides database operations for staff profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new auth repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new profile.
func (r *Repository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, email, password_hash, full_name, role, sede, branch_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Email, p.PasswordHash, p.FullName, p.Role, p.Sede, p.BranchPhone, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a profile with that email already exists")
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByEmail retrieves a profile by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	var p Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Role, &p.Sede, &p.BranchPhone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(profileNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}

	return &p, nil
}

// GetByID retrieves a profile by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Role, &p.Sede, &p.BranchPhone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(profileNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// List retrieves profiles, optionally filtered by role, ordered by name.
func (r *Repository) List(ctx context.Context, role string) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	args := []interface{}{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY full_name NULLS LAST, email`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var items []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(
			&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Role, &p.Sede, &p.BranchPhone, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		items = append(items, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return items, nil
}
