// Package repository provides the read-side queries for technician stats.
// Work is credited to completed_by, falling back to the assigned technician
// for orders completed before completer tracking existed.
package repository

import (
	"context"
	"time"

	"taller_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides stats queries.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new stats repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const creditedTo = `COALESCE(completed_by_id, assigned_technician_id)`

// DeliveredCount counts delivered orders credited to the technician since the
// window start.
func (r *Repository) DeliveredCount(ctx context.Context, technicianID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM service_orders
		WHERE status = 'delivered' AND `+creditedTo+` = $1 AND delivered_at >= $2`,
		technicianID, since,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count delivered orders", err)
	}
	return count, nil
}

// Revenue sums the charged repair costs of delivered orders credited to the
// technician since the window start.
func (r *Repository) Revenue(ctx context.Context, technicianID uuid.UUID, since time.Time) (float64, error) {
	var revenue float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(repair_cost), 0) FROM service_orders
		WHERE status = 'delivered' AND `+creditedTo+` = $1 AND delivered_at >= $2`,
		technicianID, since,
	).Scan(&revenue)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to sum revenue", err)
	}
	return revenue, nil
}

// AvgCompletionHours averages intake-to-delivery time for delivered orders
// credited to the technician since the window start.
func (r *Repository) AvgCompletionHours(ctx context.Context, technicianID uuid.UUID, since time.Time) (float64, error) {
	var hours float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (delivered_at - created_at)) / 3600), 0)
		FROM service_orders
		WHERE status = 'delivered' AND `+creditedTo+` = $1 AND delivered_at >= $2`,
		technicianID, since,
	).Scan(&hours)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to average completion time", err)
	}
	return hours, nil
}

// InProgressCount counts the technician's current open assignments.
func (r *Repository) InProgressCount(ctx context.Context, technicianID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM service_orders
		WHERE status = 'in_progress' AND assigned_technician_id = $1`,
		technicianID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count open assignments", err)
	}
	return count, nil
}
