// Package service implements the outsourcing workflow: external workshops and
// the repair episodes sent to them.
package service

import (
	"context"
	"fmt"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/events"
	"taller_backend/internal/outsourcing/repository"
	"taller_backend/internal/outsourcing/state"
	"taller_backend/internal/outsourcing/transport"
	"taller_backend/internal/reconcile"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence port for outsourcing.
type Store interface {
	CreateWorkshop(ctx context.Context, w *repository.Workshop) error
	GetWorkshop(ctx context.Context, id uuid.UUID) (*repository.Workshop, error)
	ListWorkshops(ctx context.Context, activeOnly bool) ([]repository.Workshop, error)
	UpdateWorkshop(ctx context.Context, w *repository.Workshop) error
	CountActiveRepairsByWorkshop(ctx context.Context, workshopID uuid.UUID) (int, error)
	DeleteWorkshop(ctx context.Context, id uuid.UUID) error

	CreateRepair(ctx context.Context, rep *repository.Repair) error
	GetRepair(ctx context.Context, id uuid.UUID) (*repository.Repair, error)
	GetActiveByOrder(ctx context.Context, orderID uuid.UUID) (*repository.Repair, error)
	ListRepairs(ctx context.Context, f repository.RepairFilter) ([]repository.RepairDetail, error)
	UpdateRepairStatus(ctx context.Context, id uuid.UUID, status state.Status) error
	MarkReturned(ctx context.Context, id uuid.UUID, p repository.ReturnParams) error
	Cancel(ctx context.Context, id uuid.UUID) error
	CancelActiveByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// OrderWorkflow is the orders-module port. Implemented by an adapter around
// the orders service; wired via SetOrderWorkflow to break the module cycle.
type OrderWorkflow interface {
	EnsureOutsourceable(ctx context.Context, orderID uuid.UUID) error
	BeginOutsourcing(ctx context.Context, orderID uuid.UUID) error
	CompleteFromReturn(ctx context.Context, orderID, actorID uuid.UUID, result string, notes string) error
}

// FeatureGate reports whether outsourcing is enabled in company settings.
type FeatureGate interface {
	OutsourcingEnabled(ctx context.Context) bool
}

// Service implements outsourcing operations.
type Service struct {
	store  Store
	orders OrderWorkflow
	gate   FeatureGate
	bus    events.Bus
	log    *logger.Logger
	enq    reconcile.Enqueuer
	now    func() time.Time
}

// New creates a new outsourcing service. The order workflow and feature gate
// are wired afterwards via their setters.
func New(store Store, bus events.Bus, log *logger.Logger, enq reconcile.Enqueuer) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log,
		enq:   enq,
		now:   time.Now,
	}
}

// SetOrderWorkflow wires the orders module's workflow port.
func (s *Service) SetOrderWorkflow(w OrderWorkflow) {
	s.orders = w
}

// SetFeatureGate wires the settings module's feature gate.
func (s *Service) SetFeatureGate(g FeatureGate) {
	s.gate = g
}

// ---- workshops ----

// CreateWorkshop registers an external workshop. Front desk staff only.
func (s *Service) CreateWorkshop(ctx context.Context, act actor.Actor, req transport.CreateWorkshopRequest) (*transport.WorkshopResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can manage workshops")
	}

	now := s.now()
	w := &repository.Workshop{
		ID:        uuid.New(),
		Name:      req.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setIfNotEmpty(&w.ContactPerson, req.ContactPerson)
	setIfNotEmpty(&w.Phone, req.Phone)
	setIfNotEmpty(&w.Email, req.Email)
	setIfNotEmpty(&w.Address, req.Address)
	setIfNotEmpty(&w.Specialty, req.Specialty)

	if err := s.store.CreateWorkshop(ctx, w); err != nil {
		return nil, err
	}

	s.publishWorkshopChanged(ctx, w.ID)
	resp := toWorkshopResponse(w)
	return &resp, nil
}

// ListWorkshops lists workshops. Any staff member may read the directory.
func (s *Service) ListWorkshops(ctx context.Context, req transport.ListWorkshopsRequest) ([]transport.WorkshopResponse, error) {
	workshops, err := s.store.ListWorkshops(ctx, req.ActiveOnly)
	if err != nil {
		return nil, err
	}

	out := make([]transport.WorkshopResponse, 0, len(workshops))
	for i := range workshops {
		out = append(out, toWorkshopResponse(&workshops[i]))
	}
	return out, nil
}

// UpdateWorkshop applies a partial update. Front desk staff only.
func (s *Service) UpdateWorkshop(ctx context.Context, act actor.Actor, workshopID uuid.UUID, req transport.UpdateWorkshopRequest) (*transport.WorkshopResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can manage workshops")
	}

	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.ContactPerson != nil {
		w.ContactPerson = req.ContactPerson
	}
	if req.Phone != nil {
		w.Phone = req.Phone
	}
	if req.Email != nil {
		w.Email = req.Email
	}
	if req.Address != nil {
		w.Address = req.Address
	}
	if req.Specialty != nil {
		w.Specialty = req.Specialty
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}

	if err := s.store.UpdateWorkshop(ctx, w); err != nil {
		return nil, err
	}

	s.publishWorkshopChanged(ctx, w.ID)
	resp := toWorkshopResponse(w)
	return &resp, nil
}

// DeleteWorkshop removes a workshop and its closed episodes. Deletion is
// blocked while any episode at the workshop is still active.
func (s *Service) DeleteWorkshop(ctx context.Context, act actor.Actor, workshopID uuid.UUID) error {
	if !act.Is(actor.RoleAdmin) {
		return apperr.Forbidden("only admins can delete workshops")
	}

	active, err := s.store.CountActiveRepairsByWorkshop(ctx, workshopID)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperr.Conflict(fmt.Sprintf("workshop has %d active repairs", active))
	}

	if err := s.store.DeleteWorkshop(ctx, workshopID); err != nil {
		return err
	}

	s.publishWorkshopChanged(ctx, workshopID)
	return nil
}

// ---- repairs ----

// SendToWorkshop opens an outsourcing episode. One active episode per order;
// the parent order moves to in_progress. The order write is the second record
// write: if it fails, a reconciliation task retries it.
func (s *Service) SendToWorkshop(ctx context.Context, act actor.Actor, req transport.SendToWorkshopRequest) (*transport.RepairResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can outsource repairs")
	}
	if s.gate != nil && !s.gate.OutsourcingEnabled(ctx) {
		return nil, apperr.Forbidden("outsourcing is disabled in company settings")
	}

	workshop, err := s.store.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !workshop.IsActive {
		return nil, apperr.Validation("workshop is inactive")
	}

	if err := s.orders.EnsureOutsourceable(ctx, req.OrderID); err != nil {
		return nil, err
	}

	if _, err := s.store.GetActiveByOrder(ctx, req.OrderID); err == nil {
		return nil, apperr.Conflict("order already has an active external repair")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	now := s.now()
	sentBy := act.ID
	rep := &repository.Repair{
		ID:                  uuid.New(),
		OrderID:             req.OrderID,
		WorkshopID:          req.WorkshopID,
		Status:              state.StatusSent,
		ProblemSent:         req.ProblemSent,
		SentDate:            now,
		EstimatedReturnDate: req.EstimatedReturnDate,
		SentByID:            &sentBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	setIfNotEmpty(&rep.Notes, req.Notes)

	if err := s.store.CreateRepair(ctx, rep); err != nil {
		return nil, err
	}

	if err := s.orders.BeginOutsourcing(ctx, req.OrderID); err != nil {
		s.scheduleReconcile(ctx, reconcile.OrderReconcilePayload{
			OrderID: req.OrderID.String(),
			Action:  reconcile.ActionBeginOutsourcing,
			Reason:  fmt.Sprintf("order status update failed after repair insert: %v", err),
		})
	}

	s.publishRepairChanged(ctx, rep.ID, rep.OrderID, rep.Status)
	resp := toRepairResponse(rep, workshop.Name)
	return &resp, nil
}

// UpdateStatus moves an episode forward (in_process or ready).
func (s *Service) UpdateStatus(ctx context.Context, act actor.Actor, repairID uuid.UUID, req transport.UpdateRepairStatusRequest) (*transport.RepairResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can update repairs")
	}

	rep, err := s.store.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	next := state.Status(req.Status)
	if err := state.Advance(rep.Status, next); err != nil {
		return nil, err
	}

	if err := s.store.UpdateRepairStatus(ctx, repairID, next); err != nil {
		return nil, err
	}
	rep.Status = next

	s.publishRepairChanged(ctx, rep.ID, rep.OrderID, rep.Status)
	resp := toRepairResponse(rep, "")
	return &resp, nil
}

// MarkReturned closes an episode as returned and completes the parent order
// with the caller's repair result. The order write is the second record write:
// if it fails, a reconciliation task retries it with the same inputs.
func (s *Service) MarkReturned(ctx context.Context, act actor.Actor, repairID uuid.UUID, req transport.MarkReturnedRequest) (*transport.RepairResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can receive repairs")
	}

	rep, err := s.store.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := state.EnsureActive(rep.Status); err != nil {
		return nil, err
	}

	params := repository.ReturnParams{
		ActualReturnDate: s.now(),
		Cost:             req.Cost,
		ReceivedBy:       act.ID,
	}
	setIfNotEmpty(&params.WorkDone, req.WorkDone)

	if err := s.store.MarkReturned(ctx, repairID, params); err != nil {
		return nil, err
	}
	rep.Status = state.StatusReturned
	rep.ActualReturnDate = &params.ActualReturnDate
	rep.WorkDone = params.WorkDone
	rep.Cost = params.Cost
	rep.ReceivedByID = &params.ReceivedBy

	if err := s.orders.CompleteFromReturn(ctx, rep.OrderID, act.ID, req.RepairResult, req.CompletionNotes); err != nil {
		s.scheduleReconcile(ctx, reconcile.OrderReconcilePayload{
			OrderID:         rep.OrderID.String(),
			Action:          reconcile.ActionCompleteFromReturn,
			RepairResult:    req.RepairResult,
			CompletionNotes: req.CompletionNotes,
			ActorID:         act.ID.String(),
			Reason:          fmt.Sprintf("order completion failed after repair return: %v", err),
		})
	}

	s.publishRepairChanged(ctx, rep.ID, rep.OrderID, rep.Status)
	resp := toRepairResponse(rep, "")
	return &resp, nil
}

// CancelRepair closes a single episode as cancelled. The parent order keeps
// its status; use the order's return-to-pending to fully reset.
func (s *Service) CancelRepair(ctx context.Context, act actor.Actor, repairID uuid.UUID) (*transport.RepairResponse, error) {
	if !act.Is(actor.RoleAdmin, actor.RoleReceptionist) {
		return nil, apperr.Forbidden("only front desk staff can cancel repairs")
	}

	rep, err := s.store.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := state.EnsureActive(rep.Status); err != nil {
		return nil, err
	}

	if err := s.store.Cancel(ctx, repairID); err != nil {
		return nil, err
	}
	rep.Status = state.StatusCancelled

	s.publishRepairChanged(ctx, rep.ID, rep.OrderID, rep.Status)
	resp := toRepairResponse(rep, "")
	return &resp, nil
}

// CancelActiveRepairs cancels every active episode of an order. Idempotent;
// called by the orders module when an order is reset to pending, and by the
// reconciliation worker.
func (s *Service) CancelActiveRepairs(ctx context.Context, orderID uuid.UUID) (int, error) {
	count, err := s.store.CancelActiveByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publishRepairChanged(ctx, uuid.Nil, orderID, state.StatusCancelled)
	}
	return count, nil
}

// ListRepairs returns repair episodes, honoring the filter.
func (s *Service) ListRepairs(ctx context.Context, req transport.ListRepairsRequest) ([]transport.RepairResponse, error) {
	var f repository.RepairFilter
	if req.Status != "" {
		status := state.Status(req.Status)
		f.Status = &status
	}
	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, apperr.Validation("invalid order_id")
		}
		f.OrderID = &orderID
	}
	if req.WorkshopID != "" {
		workshopID, err := uuid.Parse(req.WorkshopID)
		if err != nil {
			return nil, apperr.Validation("invalid workshop_id")
		}
		f.WorkshopID = &workshopID
	}

	details, err := s.store.ListRepairs(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]transport.RepairResponse, 0, len(details))
	for i := range details {
		d := &details[i]
		resp := toRepairResponse(&d.Repair, d.WorkshopName)
		if d.Order != nil {
			resp.Order = &transport.RepairOrderSummary{
				ID:           d.Order.ID,
				OrderNumber:  d.Order.OrderNumber,
				DeviceBrand:  d.Order.DeviceBrand,
				DeviceModel:  d.Order.DeviceModel,
				CustomerName: d.Order.CustomerName,
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Service) publishRepairChanged(ctx context.Context, repairID, orderID uuid.UUID, status state.Status) {
	s.bus.Publish(ctx, events.ExternalRepairChanged{
		BaseEvent: events.NewBaseEvent(),
		RepairID:  repairID,
		OrderID:   orderID,
		Status:    string(status),
	})
}

func (s *Service) publishWorkshopChanged(ctx context.Context, workshopID uuid.UUID) {
	s.bus.Publish(ctx, events.WorkshopChanged{
		BaseEvent:  events.NewBaseEvent(),
		WorkshopID: workshopID,
	})
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

func setIfNotEmpty(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}

func toWorkshopResponse(w *repository.Workshop) transport.WorkshopResponse {
	return transport.WorkshopResponse{
		ID:            w.ID,
		Name:          w.Name,
		ContactPerson: w.ContactPerson,
		Phone:         w.Phone,
		Email:         w.Email,
		Address:       w.Address,
		Specialty:     w.Specialty,
		IsActive:      w.IsActive,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func toRepairResponse(rep *repository.Repair, workshopName string) transport.RepairResponse {
	return transport.RepairResponse{
		ID:                  rep.ID,
		OrderID:             rep.OrderID,
		WorkshopID:          rep.WorkshopID,
		WorkshopName:        workshopName,
		Status:              string(rep.Status),
		ProblemSent:         rep.ProblemSent,
		SentDate:            rep.SentDate,
		EstimatedReturnDate: rep.EstimatedReturnDate,
		ActualReturnDate:    rep.ActualReturnDate,
		WorkDone:            rep.WorkDone,
		Cost:                rep.Cost,
		Notes:               rep.Notes,
		SentByID:            rep.SentByID,
		ReceivedByID:        rep.ReceivedByID,
		CreatedAt:           rep.CreatedAt,
		UpdatedAt:           rep.UpdatedAt,
	}
}
