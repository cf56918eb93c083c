package service

import (
	"context"
	"errors"
	"testing"
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

type fakeStore struct {
	workshops map[uuid.UUID]*repository.Workshop
	repairs   map[uuid.UUID]*repository.Repair

	deletedWorkshops []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workshops: make(map[uuid.UUID]*repository.Workshop),
		repairs:   make(map[uuid.UUID]*repository.Repair),
	}
}

func (f *fakeStore) CreateWorkshop(_ context.Context, w *repository.Workshop) error {
	cp := *w
	f.workshops[w.ID] = &cp
	return nil
}

func (f *fakeStore) GetWorkshop(_ context.Context, id uuid.UUID) (*repository.Workshop, error) {
	w, ok := f.workshops[id]
	if !ok {
		return nil, apperr.NotFound("workshop not found")
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) ListWorkshops(_ context.Context, activeOnly bool) ([]repository.Workshop, error) {
	var out []repository.Workshop
	for _, w := range f.workshops {
		if activeOnly && !w.IsActive {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeStore) UpdateWorkshop(_ context.Context, w *repository.Workshop) error {
	if _, ok := f.workshops[w.ID]; !ok {
		return apperr.NotFound("workshop not found")
	}
	cp := *w
	f.workshops[w.ID] = &cp
	return nil
}

func (f *fakeStore) CountActiveRepairsByWorkshop(_ context.Context, workshopID uuid.UUID) (int, error) {
	count := 0
	for _, rep := range f.repairs {
		if rep.WorkshopID == workshopID && !rep.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) DeleteWorkshop(_ context.Context, id uuid.UUID) error {
	if _, ok := f.workshops[id]; !ok {
		return apperr.NotFound("workshop not found")
	}
	delete(f.workshops, id)
	f.deletedWorkshops = append(f.deletedWorkshops, id)
	return nil
}

func (f *fakeStore) CreateRepair(_ context.Context, rep *repository.Repair) error {
	cp := *rep
	f.repairs[rep.ID] = &cp
	return nil
}

func (f *fakeStore) GetRepair(_ context.Context, id uuid.UUID) (*repository.Repair, error) {
	rep, ok := f.repairs[id]
	if !ok {
		return nil, apperr.NotFound("repair not found")
	}
	cp := *rep
	return &cp, nil
}

func (f *fakeStore) GetActiveByOrder(_ context.Context, orderID uuid.UUID) (*repository.Repair, error) {
	for _, rep := range f.repairs {
		if rep.OrderID == orderID && !rep.Status.Terminal() {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no active repair for order")
}

func (f *fakeStore) ListRepairs(_ context.Context, filter repository.RepairFilter) ([]repository.RepairDetail, error) {
	var out []repository.RepairDetail
	for _, rep := range f.repairs {
		if filter.Status != nil && rep.Status != *filter.Status {
			continue
		}
		if filter.OrderID != nil && rep.OrderID != *filter.OrderID {
			continue
		}
		if filter.WorkshopID != nil && rep.WorkshopID != *filter.WorkshopID {
			continue
		}
		out = append(out, repository.RepairDetail{Repair: *rep})
	}
	return out, nil
}

func (f *fakeStore) UpdateRepairStatus(_ context.Context, id uuid.UUID, status state.Status) error {
	rep, ok := f.repairs[id]
	if !ok {
		return apperr.NotFound("repair not found")
	}
	rep.Status = status
	return nil
}

func (f *fakeStore) MarkReturned(_ context.Context, id uuid.UUID, p repository.ReturnParams) error {
	rep, ok := f.repairs[id]
	if !ok {
		return apperr.NotFound("repair not found")
	}
	rep.Status = state.StatusReturned
	rep.ActualReturnDate = &p.ActualReturnDate
	rep.WorkDone = p.WorkDone
	rep.Cost = p.Cost
	receivedBy := p.ReceivedBy
	rep.ReceivedByID = &receivedBy
	return nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID) error {
	rep, ok := f.repairs[id]
	if !ok {
		return apperr.NotFound("repair not found")
	}
	rep.Status = state.StatusCancelled
	return nil
}

func (f *fakeStore) CancelActiveByOrder(_ context.Context, orderID uuid.UUID) (int, error) {
	count := 0
	for _, rep := range f.repairs {
		if rep.OrderID == orderID && !rep.Status.Terminal() {
			rep.Status = state.StatusCancelled
			count++
		}
	}
	return count, nil
}

type fakeOrders struct {
	ensureErr   error
	beginErr    error
	completeErr error

	beginCalls    int
	completeCalls int

	completedOrder  uuid.UUID
	completedResult string
	completedNotes  string
}

func (f *fakeOrders) EnsureOutsourceable(context.Context, uuid.UUID) error {
	return f.ensureErr
}

func (f *fakeOrders) BeginOutsourcing(context.Context, uuid.UUID) error {
	f.beginCalls++
	return f.beginErr
}

func (f *fakeOrders) CompleteFromReturn(_ context.Context, orderID, _ uuid.UUID, result, notes string) error {
	f.completeCalls++
	f.completedOrder = orderID
	f.completedResult = result
	f.completedNotes = notes
	return f.completeErr
}

type fakeGate struct{ enabled bool }

func (f *fakeGate) OutsourcingEnabled(context.Context) bool { return f.enabled }

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeEnqueuer struct {
	payloads []reconcile.OrderReconcilePayload
}

func (f *fakeEnqueuer) EnqueueOrderReconcile(_ context.Context, p reconcile.OrderReconcilePayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func newTestService(store *fakeStore, orders *fakeOrders) (*Service, *recordingBus, *fakeEnqueuer) {
	bus := &recordingBus{}
	enq := &fakeEnqueuer{}
	svc := New(store, bus, logger.New("development"), enq)
	svc.SetOrderWorkflow(orders)
	return svc, bus, enq
}

func seedWorkshop(store *fakeStore, active bool) *repository.Workshop {
	w := &repository.Workshop{
		ID:        uuid.New(),
		Name:      "ElectroFix",
		IsActive:  active,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	store.workshops[w.ID] = w
	return w
}

func seedRepair(store *fakeStore, orderID, workshopID uuid.UUID, status state.Status) *repository.Repair {
	rep := &repository.Repair{
		ID:          uuid.New(),
		OrderID:     orderID,
		WorkshopID:  workshopID,
		Status:      status,
		ProblemSent: "placa dañada",
		SentDate:    time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	store.repairs[rep.ID] = rep
	return rep
}

func frontDesk() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RoleReceptionist}
}

func adminUser() actor.Actor {
	return actor.Actor{ID: uuid.New(), Role: actor.RoleAdmin}
}

func TestSendToWorkshopOpensEpisode(t *testing.T) {
	store := newFakeStore()
	orders := &fakeOrders{}
	svc, bus, _ := newTestService(store, orders)
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()

	resp, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     orderID,
		WorkshopID:  workshop.ID,
		ProblemSent: "reballing de GPU",
	})
	if err != nil {
		t.Fatalf("SendToWorkshop: %v", err)
	}
	if resp.Status != string(state.StatusSent) {
		t.Fatalf("status = %s, want sent", resp.Status)
	}
	if orders.beginCalls != 1 {
		t.Fatalf("begin outsourcing calls = %d, want 1", orders.beginCalls)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(bus.published))
	}
}

func TestSendToWorkshopRejectsSecondActiveEpisode(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()
	seedRepair(store, orderID, workshop.ID, state.StatusInProcess)

	_, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     orderID,
		WorkshopID:  workshop.ID,
		ProblemSent: "segunda vuelta",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSendToWorkshopAllowsNewEpisodeAfterTerminal(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()
	seedRepair(store, orderID, workshop.ID, state.StatusCancelled)

	_, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     orderID,
		WorkshopID:  workshop.ID,
		ProblemSent: "nuevo intento",
	})
	if err != nil {
		t.Fatalf("SendToWorkshop after cancelled episode: %v", err)
	}
}

func TestSendToWorkshopBlockedWhenFeatureDisabled(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	svc.SetFeatureGate(&fakeGate{enabled: false})
	workshop := seedWorkshop(store, true)

	_, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     uuid.New(),
		WorkshopID:  workshop.ID,
		ProblemSent: "x",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSendToWorkshopRejectsInactiveWorkshop(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, false)

	_, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     uuid.New(),
		WorkshopID:  workshop.ID,
		ProblemSent: "x",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendToWorkshopTechnicianForbidden(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)

	tech := actor.Actor{ID: uuid.New(), Role: actor.RoleTechnician}
	_, err := svc.SendToWorkshop(context.Background(), tech, transport.SendToWorkshopRequest{
		OrderID:     uuid.New(),
		WorkshopID:  workshop.ID,
		ProblemSent: "x",
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSendToWorkshopSchedulesReconcileOnOrderFailure(t *testing.T) {
	store := newFakeStore()
	orders := &fakeOrders{beginErr: errors.New("pool exhausted")}
	svc, _, enq := newTestService(store, orders)
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()

	resp, err := svc.SendToWorkshop(context.Background(), frontDesk(), transport.SendToWorkshopRequest{
		OrderID:     orderID,
		WorkshopID:  workshop.ID,
		ProblemSent: "x",
	})
	if err != nil {
		t.Fatalf("SendToWorkshop: %v", err)
	}

	// The episode stands; the order side is retried by the worker.
	if _, ok := store.repairs[resp.ID]; !ok {
		t.Fatal("repair must be kept despite the order write failure")
	}
	if len(enq.payloads) != 1 || enq.payloads[0].Action != reconcile.ActionBeginOutsourcing {
		t.Fatalf("reconcile payloads = %+v", enq.payloads)
	}
}

func TestUpdateStatusIsMonotonic(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	rep := seedRepair(store, uuid.New(), workshop.ID, state.StatusReady)

	_, err := svc.UpdateStatus(context.Background(), frontDesk(), rep.ID, transport.UpdateRepairStatusRequest{Status: "in_process"})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	rep2 := seedRepair(store, uuid.New(), workshop.ID, state.StatusSent)
	resp, err := svc.UpdateStatus(context.Background(), frontDesk(), rep2.ID, transport.UpdateRepairStatusRequest{Status: "in_process"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if resp.Status != string(state.StatusInProcess) {
		t.Fatalf("status = %s, want in_process", resp.Status)
	}
}

func TestMarkReturnedCompletesParentOrder(t *testing.T) {
	store := newFakeStore()
	orders := &fakeOrders{}
	svc, _, _ := newTestService(store, orders)
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()
	rep := seedRepair(store, orderID, workshop.ID, state.StatusReady)

	front := frontDesk()
	cost := 45000.0
	resp, err := svc.MarkReturned(context.Background(), front, rep.ID, transport.MarkReturnedRequest{
		RepairResult:    "repaired",
		WorkDone:        "cambio de pantalla",
		CompletionNotes: "garantía 30 días",
		Cost:            &cost,
	})
	if err != nil {
		t.Fatalf("MarkReturned: %v", err)
	}
	if resp.Status != string(state.StatusReturned) {
		t.Fatalf("status = %s, want returned", resp.Status)
	}
	if resp.ActualReturnDate == nil {
		t.Fatal("actual return date must be set")
	}

	if orders.completeCalls != 1 {
		t.Fatalf("complete calls = %d, want 1", orders.completeCalls)
	}
	if orders.completedOrder != orderID || orders.completedResult != "repaired" || orders.completedNotes != "garantía 30 días" {
		t.Fatalf("order completion got (%s, %s, %s)", orders.completedOrder, orders.completedResult, orders.completedNotes)
	}

	stored := store.repairs[rep.ID]
	if stored.ReceivedByID == nil || *stored.ReceivedByID != front.ID {
		t.Fatal("received_by must be the receiving actor")
	}
}

func TestMarkReturnedSchedulesReconcileOnOrderFailure(t *testing.T) {
	store := newFakeStore()
	orders := &fakeOrders{completeErr: errors.New("connection reset")}
	svc, _, enq := newTestService(store, orders)
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()
	rep := seedRepair(store, orderID, workshop.ID, state.StatusReady)

	front := frontDesk()
	_, err := svc.MarkReturned(context.Background(), front, rep.ID, transport.MarkReturnedRequest{
		RepairResult:    "not_repaired",
		CompletionNotes: "sin repuesto disponible",
	})
	if err != nil {
		t.Fatalf("MarkReturned: %v", err)
	}

	if store.repairs[rep.ID].Status != state.StatusReturned {
		t.Fatal("repair return must stand despite the order write failure")
	}

	if len(enq.payloads) != 1 {
		t.Fatalf("reconcile payloads = %d, want 1", len(enq.payloads))
	}
	p := enq.payloads[0]
	if p.Action != reconcile.ActionCompleteFromReturn {
		t.Fatalf("action = %s", p.Action)
	}
	// The payload must carry the original inputs so the retry is identical.
	if p.RepairResult != "not_repaired" || p.CompletionNotes != "sin repuesto disponible" || p.ActorID != front.ID.String() {
		t.Fatalf("payload = %+v", p)
	}
}

func TestMarkReturnedRejectsTerminalEpisode(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	rep := seedRepair(store, uuid.New(), workshop.ID, state.StatusReturned)

	_, err := svc.MarkReturned(context.Background(), frontDesk(), rep.ID, transport.MarkReturnedRequest{RepairResult: "repaired"})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCancelActiveRepairsIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc, bus, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	orderID := uuid.New()
	seedRepair(store, orderID, workshop.ID, state.StatusSent)
	seedRepair(store, orderID, workshop.ID, state.StatusReturned)

	count, err := svc.CancelActiveRepairs(context.Background(), orderID)
	if err != nil {
		t.Fatalf("CancelActiveRepairs: %v", err)
	}
	if count != 1 {
		t.Fatalf("cancelled = %d, want 1 (terminal episodes untouched)", count)
	}

	count, err = svc.CancelActiveRepairs(context.Background(), orderID)
	if err != nil {
		t.Fatalf("second CancelActiveRepairs: %v", err)
	}
	if count != 0 {
		t.Fatalf("second run cancelled = %d, want 0", count)
	}

	// Only the run that changed rows publishes.
	if len(bus.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(bus.published))
	}
}

func TestDeleteWorkshopRequiresAdmin(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)

	err := svc.DeleteWorkshop(context.Background(), frontDesk(), workshop.ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteWorkshopBlockedByActiveRepairs(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	seedRepair(store, uuid.New(), workshop.ID, state.StatusSent)

	err := svc.DeleteWorkshop(context.Background(), adminUser(), workshop.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteWorkshopWithOnlyClosedHistory(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store, &fakeOrders{})
	workshop := seedWorkshop(store, true)
	seedRepair(store, uuid.New(), workshop.ID, state.StatusReturned)

	if err := svc.DeleteWorkshop(context.Background(), adminUser(), workshop.ID); err != nil {
		t.Fatalf("DeleteWorkshop: %v", err)
	}
	if len(store.deletedWorkshops) != 1 {
		t.Fatal("workshop must be deleted")
	}
}
