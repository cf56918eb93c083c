// Package service implements the service order lifecycle.
package service

import (
	"context"
	"fmt"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/events"
	"taller_backend/internal/orders/repository"
	"taller_backend/internal/orders/state"
	"taller_backend/internal/orders/transport"
	"taller_backend/internal/reconcile"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"
	"taller_backend/platform/ordernum"

	"github.com/google/uuid"
)

// Store is the persistence port for orders.
type Store interface {
	Create(ctx context.Context, o *repository.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Order, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*repository.Detail, error)
	List(ctx context.Context, f repository.Filter) ([]repository.Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status state.Status) error
	UpdateTake(ctx context.Context, id, technicianID uuid.UUID) error
	UpdateComplete(ctx context.Context, id, completedBy uuid.UUID, result string, notes *string) error
	UpdateDeliver(ctx context.Context, id uuid.UUID, p repository.DeliverParams) error
	ResetToPending(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RepairCanceller cancels the active external repairs of an order. Implemented
// by the outsourcing module; wired via SetRepairCanceller to break the module
// cycle.
type RepairCanceller interface {
	CancelActiveRepairs(ctx context.Context, orderID uuid.UUID) (int, error)
}

// Service implements order lifecycle operations.
type Service struct {
	store     Store
	gen       *ordernum.Generator
	bus       events.Bus
	log       *logger.Logger
	enq       reconcile.Enqueuer
	canceller RepairCanceller
	now       func() time.Time
}

// New creates a new orders service. The repair canceller is wired afterwards
// via SetRepairCanceller.
func New(store Store, gen *ordernum.Generator, bus events.Bus, log *logger.Logger, enq reconcile.Enqueuer) *Service {
	return &Service{
		store: store,
		gen:   gen,
		bus:   bus,
		log:   log,
		enq:   enq,
		now:   time.Now,
	}
}

// SetRepairCanceller wires the outsourcing module's canceller.
func (s *Service) SetRepairCanceller(c RepairCanceller) {
	s.canceller = c
}

// Create registers a single device for repair.
func (s *Service) Create(ctx context.Context, act actor.Actor, req transport.CreateOrderRequest) (*transport.OrderResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can register orders")
	}

	order, err := s.insertOrder(ctx, act.ID, req.CustomerID, transport.DeviceInput{
		DeviceType:         req.DeviceType,
		DeviceBrand:        req.DeviceBrand,
		DeviceModel:        req.DeviceModel,
		SerialNumber:       req.SerialNumber,
		ProblemDescription: req.ProblemDescription,
		Observations:       req.Observations,
	})
	if err != nil {
		return nil, err
	}

	return s.detailResponse(ctx, order.ID)
}

// CreateMultiDevice registers several devices for one customer. Each device is
// an independent insert; earlier successes are kept when a later device fails,
// and the response reports the outcome per device.
func (s *Service) CreateMultiDevice(ctx context.Context, act actor.Actor, req transport.CreateMultiDeviceRequest) (*transport.MultiDeviceResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can register orders")
	}

	resp := &transport.MultiDeviceResponse{
		Results: make([]transport.DeviceResult, 0, len(req.Devices)),
	}

	for i, device := range req.Devices {
		result := transport.DeviceResult{Index: i}

		order, err := s.insertOrder(ctx, act.ID, req.CustomerID, device)
		if err != nil {
			msg := apperr.Message(err)
			result.Error = &msg
			resp.Failed++
			s.log.Warn("multi-device intake: device failed",
				"index", i, "customer_id", req.CustomerID, "error", err.Error())
		} else {
			result.OrderID = &order.ID
			result.OrderNumber = &order.OrderNumber
			resp.Created++
		}

		resp.Results = append(resp.Results, result)
	}

	return resp, nil
}

func (s *Service) insertOrder(ctx context.Context, receivedBy, customerID uuid.UUID, device transport.DeviceInput) (*repository.Order, error) {
	now := s.now()
	order := &repository.Order{
		ID:                 uuid.New(),
		OrderNumber:        s.gen.Next(),
		CustomerID:         customerID,
		DeviceType:         device.DeviceType,
		DeviceBrand:        device.DeviceBrand,
		DeviceModel:        device.DeviceModel,
		ProblemDescription: device.ProblemDescription,
		Status:             state.StatusPending,
		ReceivedByID:       receivedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if device.SerialNumber != "" {
		order.SerialNumber = &device.SerialNumber
	}
	if device.Observations != "" {
		order.Observations = &device.Observations
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.OrderCreated{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
	})

	return order, nil
}

// Take assigns a technician and starts work. Technicians always take orders
// for themselves; front desk staff assign any technician.
func (s *Service) Take(ctx context.Context, act actor.Actor, orderID uuid.UUID, req transport.TakeOrderRequest) (*transport.OrderResponse, error) {
	var technicianID uuid.UUID
	switch {
	case act.Is(actor.RoleTechnician):
		if req.TechnicianID != nil && *req.TechnicianID != act.ID {
			return nil, apperr.Forbidden("technicians can only take orders for themselves")
		}
		technicianID = act.ID
	case act.Is(actor.RoleAdmin, actor.RoleReceptionist):
		if req.TechnicianID == nil {
			return nil, apperr.Validation("technician_id is required")
		}
		technicianID = *req.TechnicianID
	default:
		return nil, apperr.Forbidden("unknown role")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := state.Apply(order.Status, state.IntentTake)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateTake(ctx, orderID, technicianID); err != nil {
		return nil, err
	}

	s.publishTransition(ctx, orderID, order.Status, next, act.ID)
	return s.detailResponse(ctx, orderID)
}

// Complete records the repair outcome. Technicians may only complete orders
// assigned to them.
func (s *Service) Complete(ctx context.Context, act actor.Actor, orderID uuid.UUID, req transport.CompleteOrderRequest) (*transport.OrderResponse, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if act.Is(actor.RoleTechnician) {
		if order.AssignedTechnicianID == nil || *order.AssignedTechnicianID != act.ID {
			return nil, apperr.Forbidden("order is not assigned to you")
		}
	}

	next, err := state.Apply(order.Status, state.IntentComplete)
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.CompletionNotes != "" {
		notes = &req.CompletionNotes
	}

	if err := s.store.UpdateComplete(ctx, orderID, act.ID, req.RepairResult, notes); err != nil {
		return nil, err
	}

	s.publishTransition(ctx, orderID, order.Status, next, act.ID)
	s.publishCompleted(ctx, orderID, req.RepairResult)
	return s.detailResponse(ctx, orderID)
}

// CompleteFromReturn advances an order to completed after its external repair
// came back. It is idempotent so the reconciliation worker can retry it: an
// order already completed or delivered is left untouched.
func (s *Service) CompleteFromReturn(ctx context.Context, orderID, actorID uuid.UUID, result string, notes string) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status == state.StatusCompleted || order.Status == state.StatusDelivered {
		return nil
	}

	next, err := state.Apply(order.Status, state.IntentComplete)
	if err != nil {
		return err
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	if err := s.store.UpdateComplete(ctx, orderID, actorID, result, notesPtr); err != nil {
		return err
	}

	s.publishTransition(ctx, orderID, order.Status, next, actorID)
	s.publishCompleted(ctx, orderID, result)
	return nil
}

// BeginOutsourcing moves an order to in_progress because a repair episode was
// opened for it. An order already in progress is left untouched, so the
// reconciliation worker can retry this safely.
func (s *Service) BeginOutsourcing(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	next, err := state.Apply(order.Status, state.IntentOutsource)
	if err != nil {
		return err
	}

	if order.Status == next {
		return nil
	}

	if err := s.store.UpdateStatus(ctx, orderID, next); err != nil {
		return err
	}

	s.publishTransition(ctx, orderID, order.Status, next, uuid.Nil)
	return nil
}

// EnsureOutsourceable verifies an order may start an outsourcing episode
// without writing anything. The outsourcing module calls it before inserting
// the repair row.
func (s *Service) EnsureOutsourceable(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	_, err = state.Apply(order.Status, state.IntentOutsource)
	return err
}

// Deliver hands the device back to the customer and captures payment. Orders
// that were not repaired are delivered without charge regardless of input.
func (s *Service) Deliver(ctx context.Context, act actor.Actor, orderID uuid.UUID, req transport.DeliverOrderRequest) (*transport.OrderResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can deliver orders")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := state.Apply(order.Status, state.IntentDeliver)
	if err != nil {
		return nil, err
	}

	params := repository.DeliverParams{DeliveredAt: s.now()}
	if req.DeliveryNotes != "" {
		params.DeliveryNotes = &req.DeliveryNotes
	}

	notRepaired := order.RepairResult != nil && state.RepairResult(*order.RepairResult) == state.ResultNotRepaired
	if !notRepaired && req.RepairCost != nil && *req.RepairCost > 0 {
		if req.PaymentMethod == nil {
			return nil, apperr.Validation("payment_method is required when a repair cost is charged")
		}
		params.RepairCost = req.RepairCost
		params.PaymentMethod = req.PaymentMethod
		collector := act.ID
		params.PaymentCollectedBy = &collector
	}

	if err := s.store.UpdateDeliver(ctx, orderID, params); err != nil {
		return nil, err
	}

	s.publishTransition(ctx, orderID, order.Status, next, act.ID)
	return s.detailResponse(ctx, orderID)
}

// ReturnToPending resets an order to the intake queue, clearing technician
// assignment and completion data and cancelling any active external repairs.
// The repair cancellation is a second record write; if it fails, a
// reconciliation task retries it.
func (s *Service) ReturnToPending(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*transport.OrderResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can return orders to pending")
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := state.Apply(order.Status, state.IntentReopen)
	if err != nil {
		return nil, err
	}

	if err := s.store.ResetToPending(ctx, orderID); err != nil {
		return nil, err
	}

	if s.canceller != nil {
		if _, err := s.canceller.CancelActiveRepairs(ctx, orderID); err != nil {
			s.scheduleReconcile(ctx, reconcile.OrderReconcilePayload{
				OrderID: orderID.String(),
				Action:  reconcile.ActionCancelActiveRepairs,
				Reason:  fmt.Sprintf("cancel active repairs failed: %v", err),
			})
		}
	}

	s.publishTransition(ctx, orderID, order.Status, next, act.ID)
	return s.detailResponse(ctx, orderID)
}

// List returns orders visible to the actor. Technicians see the pending queue
// plus their own assignments; front desk staff see everything.
func (s *Service) List(ctx context.Context, act actor.Actor, req transport.ListOrdersRequest) ([]transport.OrderResponse, error) {
	var f repository.Filter
	if req.Status != "" {
		status := state.Status(req.Status)
		f.Status = &status
	}
	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, apperr.Validation("invalid customer_id")
		}
		f.CustomerID = &customerID
	}
	if act.Is(actor.RoleTechnician) {
		techID := act.ID
		f.VisibleToTechnician = &techID
	}

	details, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]transport.OrderResponse, 0, len(details))
	for i := range details {
		out = append(out, toResponse(&details[i]))
	}
	return out, nil
}

// GetByID returns one order, honoring technician visibility.
func (s *Service) GetByID(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*transport.OrderResponse, error) {
	detail, err := s.store.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if act.Is(actor.RoleTechnician) {
		assigned := detail.AssignedTechnicianID != nil && *detail.AssignedTechnicianID == act.ID
		if !assigned && detail.Status != state.StatusPending {
			// Hidden, not forbidden: don't reveal that the order exists.
			return nil, apperr.NotFound("order not found")
		}
	}

	resp := toResponse(detail)
	return &resp, nil
}

// Delete removes an order. Admin only; external repairs cascade.
func (s *Service) Delete(ctx context.Context, act actor.Actor, orderID uuid.UUID) error {
	if !act.Is(actor.RoleAdmin) {
		return apperr.Forbidden("only administrators can delete orders")
	}

	if err := s.store.Delete(ctx, orderID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.OrderDeleted{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
	})
	return nil
}

func (s *Service) publishTransition(ctx context.Context, orderID uuid.UUID, from, to state.Status, actorID uuid.UUID) {
	s.log.OrderTransition(orderID.String(), string(from), string(to), actorID.String())
	s.bus.Publish(ctx, events.OrderStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   orderID,
		From:      string(from),
		To:        string(to),
		ActorID:   actorID,
	})
}

func (s *Service) publishCompleted(ctx context.Context, orderID uuid.UUID, result string) {
	detail, err := s.store.GetDetail(ctx, orderID)
	if err != nil {
		s.log.Warn("completed event: failed to load order detail", "order_id", orderID, "error", err.Error())
		return
	}

	evt := events.OrderCompleted{
		BaseEvent:    events.NewBaseEvent(),
		OrderID:      orderID,
		OrderNumber:  detail.OrderNumber,
		DeviceLabel:  fmt.Sprintf("%s %s", detail.DeviceBrand, detail.DeviceModel),
		RepairResult: result,
	}
	if detail.Customer != nil {
		evt.CustomerName = detail.Customer.FullName
		if detail.Customer.Email != nil {
			evt.CustomerEmail = *detail.Customer.Email
		}
	}
	s.bus.Publish(ctx, evt)
}

func (s *Service) scheduleReconcile(ctx context.Context, p reconcile.OrderReconcilePayload) {
	if s.enq == nil {
		s.log.Error("reconcile needed but no enqueuer configured", "order_id", p.OrderID, "action", p.Action)
		return
	}
	if err := s.enq.EnqueueOrderReconcile(ctx, p); err != nil {
		s.log.Error("failed to enqueue reconcile task", "order_id", p.OrderID, "action", p.Action, "error", err.Error())
	}
}

func (s *Service) detailResponse(ctx context.Context, orderID uuid.UUID) (*transport.OrderResponse, error) {
	detail, err := s.store.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(detail)
	return &resp, nil
}

func toResponse(d *repository.Detail) transport.OrderResponse {
	resp := transport.OrderResponse{
		ID:                 d.ID,
		OrderNumber:        d.OrderNumber,
		Status:             string(d.Status),
		DeviceType:         d.DeviceType,
		DeviceBrand:        d.DeviceBrand,
		DeviceModel:        d.DeviceModel,
		SerialNumber:       d.SerialNumber,
		ProblemDescription: d.ProblemDescription,
		Observations:       d.Observations,
		RepairResult:       d.RepairResult,
		CompletionNotes:    d.CompletionNotes,
		DeliveredAt:        d.DeliveredAt,
		DeliveryNotes:      d.DeliveryNotes,
		RepairCost:         d.RepairCost,
		PaymentMethod:      d.PaymentMethod,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.Customer != nil {
		resp.Customer = &transport.CustomerSummary{
			ID:       d.Customer.ID,
			FullName: d.Customer.FullName,
			Cedula:   d.Customer.Cedula,
			Phone:    d.Customer.Phone,
			Email:    d.Customer.Email,
		}
	}
	if d.ReceivedBy != nil {
		resp.ReceivedBy = &transport.PersonSummary{ID: d.ReceivedBy.ID, FullName: d.ReceivedBy.FullName}
	}
	if d.AssignedTechnician != nil {
		resp.AssignedTechnician = &transport.PersonSummary{ID: d.AssignedTechnician.ID, FullName: d.AssignedTechnician.FullName}
	}
	if d.CompletedBy != nil {
		resp.CompletedBy = &transport.PersonSummary{ID: d.CompletedBy.ID, FullName: d.CompletedBy.FullName}
	}
	if d.PaymentCollectedBy != nil {
		resp.PaymentCollectedBy = &transport.PersonSummary{ID: d.PaymentCollectedBy.ID, FullName: d.PaymentCollectedBy.FullName}
	}
	if d.ActiveRepair != nil {
		resp.ActiveExternalRepair = &transport.ExternalRepairSummary{
			ID:                  d.ActiveRepair.ID,
			WorkshopName:        d.ActiveRepair.WorkshopName,
			Status:              d.ActiveRepair.Status,
			SentDate:            d.ActiveRepair.SentDate,
			EstimatedReturnDate: d.ActiveRepair.EstimatedReturnDate,
		}
	}
	return resp
}
