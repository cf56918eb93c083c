// Package repository provides postgres persistence for external workshops and
// repair episodes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taller_backend/internal/outsourcing/state"
	"taller_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Workshop is a persisted external workshop row.
type Workshop struct {
	ID            uuid.UUID
	Name          string
	ContactPerson *string
	Phone         *string
	Email         *string
	Address       *string
	Specialty     *string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repair is a persisted external repair episode row.
type Repair struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	WorkshopID          uuid.UUID
	Status              state.Status
	ProblemSent         string
	SentDate            time.Time
	EstimatedReturnDate *time.Time
	ActualReturnDate    *time.Time
	WorkDone            *string
	Cost                *float64
	Notes               *string
	SentByID            *uuid.UUID
	ReceivedByID        *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderRef is the joined order slice of a repair detail.
type OrderRef struct {
	ID           uuid.UUID
	OrderNumber  string
	DeviceBrand  string
	DeviceModel  string
	CustomerName string
}

// RepairDetail is a repair with its joined relations.
type RepairDetail struct {
	Repair
	WorkshopName string
	Order        *OrderRef
}

// RepairFilter narrows ListRepairs results.
type RepairFilter struct {
	Status     *state.Status
	OrderID    *uuid.UUID
	WorkshopID *uuid.UUID
}

// ReturnParams carries the mark-returned write.
type ReturnParams struct {
	ActualReturnDate time.Time
	WorkDone         *string
	Cost             *float64
	ReceivedBy       uuid.UUID
}

// Repository provides outsourcing persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new outsourcing repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ---- workshops ----

const workshopColumns = `w.id, w.name, w.contact_person, w.phone, w.email, w.address,
	w.specialty, w.is_active, w.created_at, w.updated_at`

// CreateWorkshop inserts a workshop.
func (r *Repository) CreateWorkshop(ctx context.Context, w *Workshop) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO external_workshops (
			id, name, contact_person, phone, email, address, specialty, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.Name, w.ContactPerson, w.Phone, w.Email, w.Address, w.Specialty, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a workshop with this name already exists")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to create workshop", err)
	}
	return nil
}

// GetWorkshop returns a workshop by id.
func (r *Repository) GetWorkshop(ctx context.Context, id uuid.UUID) (*Workshop, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM external_workshops w WHERE w.id = $1`, workshopColumns), id)
	w, err := scanWorkshop(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("workshop not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get workshop", err)
	}
	return w, nil
}

// ListWorkshops returns workshops ordered by name.
func (r *Repository) ListWorkshops(ctx context.Context, activeOnly bool) ([]Workshop, error) {
	query := fmt.Sprintf(`SELECT %s FROM external_workshops w`, workshopColumns)
	if activeOnly {
		query += ` WHERE w.is_active`
	}
	query += ` ORDER BY w.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list workshops", err)
	}
	defer rows.Close()

	var out []Workshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan workshop", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list workshops", err)
	}
	return out, nil
}

// UpdateWorkshop persists a full workshop row.
func (r *Repository) UpdateWorkshop(ctx context.Context, w *Workshop) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE external_workshops
		SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6,
			specialty = $7, is_active = $8, updated_at = now()
		WHERE id = $1`,
		w.ID, w.Name, w.ContactPerson, w.Phone, w.Email, w.Address, w.Specialty, w.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("a workshop with this name already exists")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update workshop", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("workshop not found")
	}
	return nil
}

// CountActiveRepairsByWorkshop counts non-terminal episodes at a workshop.
func (r *Repository) CountActiveRepairsByWorkshop(ctx context.Context, workshopID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM external_repairs
		WHERE workshop_id = $1 AND status NOT IN ('returned', 'cancelled')`,
		workshopID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count active repairs", err)
	}
	return count, nil
}

// DeleteWorkshop removes a workshop and its historical episodes. The caller
// has already verified no active episodes remain.
func (r *Repository) DeleteWorkshop(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM external_repairs WHERE workshop_id = $1`, id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete workshop history", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM external_workshops WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete workshop", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("workshop not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to commit workshop delete", err)
	}
	return nil
}

// ---- repairs ----

const repairColumns = `er.id, er.service_order_id, er.workshop_id, er.status, er.problem_sent,
	er.sent_date, er.estimated_return_date, er.actual_return_date, er.work_done,
	er.cost, er.notes, er.sent_by_id, er.received_by_id, er.created_at, er.updated_at`

// CreateRepair inserts a repair episode.
func (r *Repository) CreateRepair(ctx context.Context, rep *Repair) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO external_repairs (
			id, service_order_id, workshop_id, status, problem_sent, sent_date,
			estimated_return_date, notes, sent_by_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rep.ID, rep.OrderID, rep.WorkshopID, rep.Status, rep.ProblemSent, rep.SentDate,
		rep.EstimatedReturnDate, rep.Notes, rep.SentByID, rep.CreatedAt, rep.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Validation("referenced order or workshop does not exist")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to create repair", err)
	}
	return nil
}

// GetRepair returns a repair by id.
func (r *Repository) GetRepair(ctx context.Context, id uuid.UUID) (*Repair, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM external_repairs er WHERE er.id = $1`, repairColumns), id)
	rep, err := scanRepair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("repair not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get repair", err)
	}
	return rep, nil
}

// GetActiveByOrder returns the order's active episode, or a not found error.
func (r *Repository) GetActiveByOrder(ctx context.Context, orderID uuid.UUID) (*Repair, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM external_repairs er
		WHERE er.service_order_id = $1 AND er.status NOT IN ('returned', 'cancelled')
		ORDER BY er.created_at DESC
		LIMIT 1`, repairColumns), orderID)
	rep, err := scanRepair(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no active repair for order")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get active repair", err)
	}
	return rep, nil
}

const repairDetailQuery = `
	SELECT ` + repairColumns + `, w.name,
		o.id, o.order_number, o.device_brand, o.device_model, c.full_name
	FROM external_repairs er
	JOIN external_workshops w ON w.id = er.workshop_id
	JOIN service_orders o ON o.id = er.service_order_id
	JOIN customers c ON c.id = o.customer_id`

// ListRepairs returns repair details newest first, honoring the filter.
func (r *Repository) ListRepairs(ctx context.Context, f RepairFilter) ([]RepairDetail, error) {
	query := repairDetailQuery + ` WHERE 1=1`
	var args []any

	addFilter := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Status != nil {
		addFilter("er.status = $%d", *f.Status)
	}
	if f.OrderID != nil {
		addFilter("er.service_order_id = $%d", *f.OrderID)
	}
	if f.WorkshopID != nil {
		addFilter("er.workshop_id = $%d", *f.WorkshopID)
	}

	query += ` ORDER BY er.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list repairs", err)
	}
	defer rows.Close()

	var out []RepairDetail
	for rows.Next() {
		d, err := scanRepairDetail(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan repair", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list repairs", err)
	}
	return out, nil
}

// UpdateRepairStatus persists a forward progress move.
func (r *Repository) UpdateRepairStatus(ctx context.Context, id uuid.UUID, status state.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE external_repairs SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update repair status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("repair not found")
	}
	return nil
}

// MarkReturned closes an episode as returned.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID, p ReturnParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE external_repairs
		SET status = $2, actual_return_date = $3, work_done = $4, cost = $5,
			received_by_id = $6, updated_at = now()
		WHERE id = $1`,
		id, state.StatusReturned, p.ActualReturnDate, p.WorkDone, p.Cost, p.ReceivedBy,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark repair returned", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("repair not found")
	}
	return nil
}

// Cancel closes a single episode as cancelled.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE external_repairs SET status = $2, updated_at = now() WHERE id = $1`,
		id, state.StatusCancelled,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to cancel repair", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("repair not found")
	}
	return nil
}

// CancelActiveByOrder cancels every non-terminal episode of an order and
// returns how many rows changed. Zero rows is a valid outcome; the operation
// is idempotent.
func (r *Repository) CancelActiveByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE external_repairs
		SET status = $2, updated_at = now()
		WHERE service_order_id = $1 AND status NOT IN ('returned', 'cancelled')`,
		orderID, state.StatusCancelled,
	)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to cancel active repairs", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanWorkshop(row pgx.Row) (*Workshop, error) {
	var w Workshop
	err := row.Scan(
		&w.ID, &w.Name, &w.ContactPerson, &w.Phone, &w.Email, &w.Address,
		&w.Specialty, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanRepair(row pgx.Row) (*Repair, error) {
	var rep Repair
	err := row.Scan(
		&rep.ID, &rep.OrderID, &rep.WorkshopID, &rep.Status, &rep.ProblemSent,
		&rep.SentDate, &rep.EstimatedReturnDate, &rep.ActualReturnDate, &rep.WorkDone,
		&rep.Cost, &rep.Notes, &rep.SentByID, &rep.ReceivedByID, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func scanRepairDetail(row pgx.Row) (*RepairDetail, error) {
	var (
		d        RepairDetail
		orderRef OrderRef
	)
	err := row.Scan(
		&d.ID, &d.OrderID, &d.WorkshopID, &d.Status, &d.ProblemSent,
		&d.SentDate, &d.EstimatedReturnDate, &d.ActualReturnDate, &d.WorkDone,
		&d.Cost, &d.Notes, &d.SentByID, &d.ReceivedByID, &d.CreatedAt, &d.UpdatedAt,
		&d.WorkshopName,
		&orderRef.ID, &orderRef.OrderNumber, &orderRef.DeviceBrand, &orderRef.DeviceModel, &orderRef.CustomerName,
	)
	if err != nil {
		return nil, err
	}
	d.Order = &orderRef
	return &d, nil
}
