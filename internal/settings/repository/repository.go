// Package repository provides postgres persistence for company settings.
// Settings are a single row; the application upserts it in place.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"taller_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the persisted company settings row.
type Settings struct {
	ID              uuid.UUID
	CompanyName     string
	Nit             *string
	Address         *string
	Phone           *string
	Email           *string
	LogoURL         *string
	FeaturesEnabled map[string]bool
	RequiredFields  map[string]bool
	UpdatedAt       time.Time
}

// Repository provides settings persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new settings repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the settings row.
func (r *Repository) Get(ctx context.Context) (*Settings, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, company_name, nit, address, phone, email, logo_url,
			features_enabled, required_fields, updated_at
		FROM company_settings
		LIMIT 1`)

	var (
		s        Settings
		features []byte
		required []byte
	)
	err := row.Scan(&s.ID, &s.CompanyName, &s.Nit, &s.Address, &s.Phone, &s.Email,
		&s.LogoURL, &features, &required, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("settings not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get settings", err)
	}

	if err := json.Unmarshal(features, &s.FeaturesEnabled); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to decode feature flags", err)
	}
	if err := json.Unmarshal(required, &s.RequiredFields); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to decode required fields", err)
	}
	return &s, nil
}

// Upsert writes the settings row, creating it on first use.
func (r *Repository) Upsert(ctx context.Context, s *Settings) error {
	features, err := json.Marshal(s.FeaturesEnabled)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode feature flags", err)
	}
	required, err := json.Marshal(s.RequiredFields)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode required fields", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO company_settings (
			id, company_name, nit, address, phone, email, logo_url,
			features_enabled, required_fields, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			nit = EXCLUDED.nit,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			logo_url = EXCLUDED.logo_url,
			features_enabled = EXCLUDED.features_enabled,
			required_fields = EXCLUDED.required_fields,
			updated_at = now()`,
		s.ID, s.CompanyName, s.Nit, s.Address, s.Phone, s.Email, s.LogoURL, features, required,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to upsert settings", err)
	}
	return nil
}
