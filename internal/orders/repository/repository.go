// Package repository provides postgres persistence for service orders.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taller_backend/internal/orders/state"
	"taller_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Order is the persisted service order row.
type Order struct {
	ID                   uuid.UUID
	OrderNumber          string
	CustomerID           uuid.UUID
	DeviceType           string
	DeviceBrand          string
	DeviceModel          string
	SerialNumber         *string
	ProblemDescription   string
	Observations         *string
	Status               state.Status
	ReceivedByID         uuid.UUID
	AssignedTechnicianID *uuid.UUID
	CompletedByID        *uuid.UUID
	PaymentCollectedByID *uuid.UUID
	RepairResult         *string
	CompletionNotes      *string
	DeliveredAt          *time.Time
	DeliveryNotes        *string
	RepairCost           *float64
	PaymentMethod        *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CustomerRef is the joined customer slice of a detail row.
type CustomerRef struct {
	ID       uuid.UUID
	FullName string
	Cedula   string
	Phone    *string
	Email    *string
}

// PersonRef is a joined staff profile slice of a detail row.
type PersonRef struct {
	ID       uuid.UUID
	FullName *string
}

// RepairRef is the active external repair episode of a detail row.
type RepairRef struct {
	ID                  uuid.UUID
	WorkshopName        string
	Status              string
	SentDate            time.Time
	EstimatedReturnDate *time.Time
}

// Detail is an order with its joined relations.
type Detail struct {
	Order
	Customer           *CustomerRef
	ReceivedBy         *PersonRef
	AssignedTechnician *PersonRef
	CompletedBy        *PersonRef
	PaymentCollectedBy *PersonRef
	ActiveRepair       *RepairRef
}

// Filter narrows List results.
type Filter struct {
	Status     *state.Status
	CustomerID *uuid.UUID
	// VisibleToTechnician restricts results to orders the technician may
	// see: assigned to them, or still in the pending queue.
	VisibleToTechnician *uuid.UUID
}

// DeliverParams carries the delivery write.
type DeliverParams struct {
	DeliveredAt        time.Time
	DeliveryNotes      *string
	RepairCost         *float64
	PaymentMethod      *string
	PaymentCollectedBy *uuid.UUID
}

// Repository provides order persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `o.id, o.order_number, o.customer_id, o.device_type, o.device_brand,
	o.device_model, o.serial_number, o.problem_description, o.observations, o.status,
	o.received_by_id, o.assigned_technician_id, o.completed_by_id, o.payment_collected_by_id,
	o.repair_result, o.completion_notes, o.delivered_at, o.delivery_notes,
	o.repair_cost, o.payment_method, o.created_at, o.updated_at`

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_orders (
			id, order_number, customer_id, device_type, device_brand, device_model,
			serial_number, problem_description, observations, status, received_by_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.OrderNumber, o.CustomerID, o.DeviceType, o.DeviceBrand, o.DeviceModel,
		o.SerialNumber, o.ProblemDescription, o.Observations, o.Status, o.ReceivedByID,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return apperr.Conflict("order number already exists")
			case "23503":
				return apperr.Validation("referenced customer does not exist")
			}
		}
		return apperr.Wrap(apperr.KindInternal, "failed to create order", err)
	}
	return nil
}

// GetByID returns the bare order row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM service_orders o WHERE o.id = $1`, orderColumns), id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get order", err)
	}
	return o, nil
}

const detailQuery = `
	SELECT ` + orderColumns + `,
		c.id, c.full_name, c.cedula, c.phone, c.email,
		rb.id, rb.full_name,
		t.id, t.full_name,
		cb.id, cb.full_name,
		pc.id, pc.full_name,
		ar.id, ar.workshop_name, ar.status, ar.sent_date, ar.estimated_return_date
	FROM service_orders o
	JOIN customers c ON c.id = o.customer_id
	LEFT JOIN profiles rb ON rb.id = o.received_by_id
	LEFT JOIN profiles t ON t.id = o.assigned_technician_id
	LEFT JOIN profiles cb ON cb.id = o.completed_by_id
	LEFT JOIN profiles pc ON pc.id = o.payment_collected_by_id
	LEFT JOIN LATERAL (
		SELECT er.id, w.name AS workshop_name, er.status, er.sent_date, er.estimated_return_date
		FROM external_repairs er
		JOIN external_workshops w ON w.id = er.workshop_id
		WHERE er.service_order_id = o.id AND er.status NOT IN ('returned', 'cancelled')
		ORDER BY er.created_at DESC
		LIMIT 1
	) ar ON true`

// GetDetail returns an order with its joined relations.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE o.id = $1`, id)
	d, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get order detail", err)
	}
	return d, nil
}

// List returns order details newest first, honoring the filter.
func (r *Repository) List(ctx context.Context, f Filter) ([]Detail, error) {
	query := detailQuery + ` WHERE 1=1`
	var args []any

	addFilter := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Status != nil {
		addFilter("o.status = $%d", *f.Status)
	}
	if f.CustomerID != nil {
		addFilter("o.customer_id = $%d", *f.CustomerID)
	}
	if f.VisibleToTechnician != nil {
		addFilter("(o.assigned_technician_id = $%d OR o.status = 'pending')", *f.VisibleToTechnician)
	}

	query += ` ORDER BY o.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list orders", err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan order", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list orders", err)
	}
	return out, nil
}

// UpdateStatus persists a status computed by the lifecycle state machine.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status state.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_orders SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// UpdateTake assigns a technician and moves the order to in_progress.
func (r *Repository) UpdateTake(ctx context.Context, id, technicianID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_orders
		SET status = $2, assigned_technician_id = $3, updated_at = now()
		WHERE id = $1`,
		id, state.StatusInProgress, technicianID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Validation("referenced technician does not exist")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to take order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// UpdateComplete records the repair outcome and moves the order to completed.
func (r *Repository) UpdateComplete(ctx context.Context, id, completedBy uuid.UUID, result string, notes *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_orders
		SET status = $2, completed_by_id = $3, repair_result = $4, completion_notes = $5, updated_at = now()
		WHERE id = $1`,
		id, state.StatusCompleted, completedBy, result, notes,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to complete order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// UpdateDeliver records the handover and moves the order to delivered.
func (r *Repository) UpdateDeliver(ctx context.Context, id uuid.UUID, p DeliverParams) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_orders
		SET status = $2, delivered_at = $3, delivery_notes = $4, repair_cost = $5,
			payment_method = $6, payment_collected_by_id = $7, updated_at = now()
		WHERE id = $1`,
		id, state.StatusDelivered, p.DeliveredAt, p.DeliveryNotes, p.RepairCost,
		p.PaymentMethod, p.PaymentCollectedBy,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to deliver order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// ResetToPending returns the order to the intake queue, clearing every field
// derived after intake. Intake data is preserved.
func (r *Repository) ResetToPending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_orders
		SET status = $2,
			assigned_technician_id = NULL,
			completed_by_id = NULL,
			payment_collected_by_id = NULL,
			repair_result = NULL,
			completion_notes = NULL,
			delivered_at = NULL,
			delivery_notes = NULL,
			repair_cost = NULL,
			payment_method = NULL,
			updated_at = now()
		WHERE id = $1`,
		id, state.StatusPending,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to reset order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// Delete removes an order. External repairs cascade via FK.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_orders WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// CountByCustomer reports how many orders reference a customer. The customers
// module uses it to block deleting customers with history.
func (r *Repository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_orders WHERE customer_id = $1`, customerID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to count customer orders", err)
	}
	return count, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.DeviceType, &o.DeviceBrand,
		&o.DeviceModel, &o.SerialNumber, &o.ProblemDescription, &o.Observations, &o.Status,
		&o.ReceivedByID, &o.AssignedTechnicianID, &o.CompletedByID, &o.PaymentCollectedByID,
		&o.RepairResult, &o.CompletionNotes, &o.DeliveredAt, &o.DeliveryNotes,
		&o.RepairCost, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var (
		d Detail

		custID     uuid.UUID
		custName   string
		custCedula string
		custPhone  *string
		custEmail  *string

		rbID     *uuid.UUID
		rbName   *string
		techID   *uuid.UUID
		techName *string
		cbID     *uuid.UUID
		cbName   *string
		pcID     *uuid.UUID
		pcName   *string

		repID     *uuid.UUID
		repShop   *string
		repStatus *string
		repSent   *time.Time
		repEst    *time.Time
	)

	err := row.Scan(
		&d.ID, &d.OrderNumber, &d.CustomerID, &d.DeviceType, &d.DeviceBrand,
		&d.DeviceModel, &d.SerialNumber, &d.ProblemDescription, &d.Observations, &d.Status,
		&d.ReceivedByID, &d.AssignedTechnicianID, &d.CompletedByID, &d.PaymentCollectedByID,
		&d.RepairResult, &d.CompletionNotes, &d.DeliveredAt, &d.DeliveryNotes,
		&d.RepairCost, &d.PaymentMethod, &d.CreatedAt, &d.UpdatedAt,
		&custID, &custName, &custCedula, &custPhone, &custEmail,
		&rbID, &rbName,
		&techID, &techName,
		&cbID, &cbName,
		&pcID, &pcName,
		&repID, &repShop, &repStatus, &repSent, &repEst,
	)
	if err != nil {
		return nil, err
	}

	d.Customer = &CustomerRef{ID: custID, FullName: custName, Cedula: custCedula, Phone: custPhone, Email: custEmail}
	if rbID != nil {
		d.ReceivedBy = &PersonRef{ID: *rbID, FullName: rbName}
	}
	if techID != nil {
		d.AssignedTechnician = &PersonRef{ID: *techID, FullName: techName}
	}
	if cbID != nil {
		d.CompletedBy = &PersonRef{ID: *cbID, FullName: cbName}
	}
	if pcID != nil {
		d.PaymentCollectedBy = &PersonRef{ID: *pcID, FullName: pcName}
	}
	if repID != nil {
		d.ActiveRepair = &RepairRef{
			ID:                  *repID,
			WorkshopName:        deref(repShop),
			Status:              deref(repStatus),
			SentDate:            derefTime(repSent),
			EstimatedReturnDate: repEst,
		}
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
