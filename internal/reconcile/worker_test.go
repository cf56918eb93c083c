package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"taller_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeOrderWriter struct {
	completeCalls []completeCall
	beginCalls    []uuid.UUID
	completeErr   error
}

type completeCall struct {
	orderID uuid.UUID
	actorID uuid.UUID
	result  string
	notes   string
}

func (f *fakeOrderWriter) CompleteFromReturn(_ context.Context, orderID, actorID uuid.UUID, result, notes string) error {
	f.completeCalls = append(f.completeCalls, completeCall{orderID, actorID, result, notes})
	return f.completeErr
}

func (f *fakeOrderWriter) BeginOutsourcing(_ context.Context, orderID uuid.UUID) error {
	f.beginCalls = append(f.beginCalls, orderID)
	return nil
}

type fakeRepairWriter struct {
	cancelCalls []uuid.UUID
	cancelErr   error
}

func (f *fakeRepairWriter) CancelActiveRepairs(_ context.Context, orderID uuid.UUID) (int, error) {
	f.cancelCalls = append(f.cancelCalls, orderID)
	return 1, f.cancelErr
}

func newTestWorker(orders *fakeOrderWriter, repairs *fakeRepairWriter) *Worker {
	return &Worker{
		orders:  orders,
		repairs: repairs,
		log:     logger.New("development"),
	}
}

func taskFor(t *testing.T, p OrderReconcilePayload) *asynq.Task {
	t.Helper()
	task, err := NewOrderReconcileTask(p)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestHandleCancelActiveRepairs(t *testing.T) {
	orders := &fakeOrderWriter{}
	repairs := &fakeRepairWriter{}
	w := newTestWorker(orders, repairs)

	orderID := uuid.New()
	task := taskFor(t, OrderReconcilePayload{
		OrderID: orderID.String(),
		Action:  ActionCancelActiveRepairs,
		Reason:  "repair cancellation failed after order reset",
	})

	if err := w.handleOrderReconcile(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repairs.cancelCalls) != 1 || repairs.cancelCalls[0] != orderID {
		t.Fatalf("cancel calls = %v", repairs.cancelCalls)
	}
}

func TestHandleCompleteFromReturnReplaysOriginalInputs(t *testing.T) {
	orders := &fakeOrderWriter{}
	w := newTestWorker(orders, &fakeRepairWriter{})

	orderID := uuid.New()
	actorID := uuid.New()
	task := taskFor(t, OrderReconcilePayload{
		OrderID:         orderID.String(),
		Action:          ActionCompleteFromReturn,
		RepairResult:    "repaired",
		CompletionNotes: "pantalla reemplazada por el taller externo",
		ActorID:         actorID.String(),
	})

	if err := w.handleOrderReconcile(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(orders.completeCalls) != 1 {
		t.Fatalf("complete calls = %d", len(orders.completeCalls))
	}
	call := orders.completeCalls[0]
	if call.orderID != orderID || call.actorID != actorID {
		t.Fatalf("ids = %v / %v", call.orderID, call.actorID)
	}
	if call.result != "repaired" || call.notes != "pantalla reemplazada por el taller externo" {
		t.Fatalf("inputs not replayed: %+v", call)
	}
}

func TestHandleBeginOutsourcing(t *testing.T) {
	orders := &fakeOrderWriter{}
	w := newTestWorker(orders, &fakeRepairWriter{})

	orderID := uuid.New()
	task := taskFor(t, OrderReconcilePayload{OrderID: orderID.String(), Action: ActionBeginOutsourcing})

	if err := w.handleOrderReconcile(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(orders.beginCalls) != 1 || orders.beginCalls[0] != orderID {
		t.Fatalf("begin calls = %v", orders.beginCalls)
	}
}

func TestHandleWriteFailureIsRetryable(t *testing.T) {
	orders := &fakeOrderWriter{completeErr: errors.New("db unavailable")}
	w := newTestWorker(orders, &fakeRepairWriter{})

	task := taskFor(t, OrderReconcilePayload{
		OrderID: uuid.New().String(),
		Action:  ActionCompleteFromReturn,
	})

	err := w.handleOrderReconcile(context.Background(), task)
	if err == nil {
		t.Fatal("expected error so asynq retries")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("transient write failures must stay retryable")
	}
}

func TestHandleUnknownActionSkipsRetry(t *testing.T) {
	w := newTestWorker(&fakeOrderWriter{}, &fakeRepairWriter{})

	task := taskFor(t, OrderReconcilePayload{OrderID: uuid.New().String(), Action: "vacuum"})

	err := w.handleOrderReconcile(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestHandleMalformedPayloadSkipsRetry(t *testing.T) {
	w := newTestWorker(&fakeOrderWriter{}, &fakeRepairWriter{})

	task := asynq.NewTask(TaskOrderReconcile, []byte("{not json"))
	err := w.handleOrderReconcile(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}

	// Sanity check: a valid payload round-trips.
	data, _ := json.Marshal(OrderReconcilePayload{OrderID: uuid.New().String(), Action: ActionBeginOutsourcing})
	var p OrderReconcilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("round trip: %v", err)
	}
}
