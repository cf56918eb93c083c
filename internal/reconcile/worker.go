package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"taller_backend/platform/config"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OrderWriter is the slice of the orders service the worker retries against.
type OrderWriter interface {
	CompleteFromReturn(ctx context.Context, orderID, actorID uuid.UUID, result string, notes string) error
	BeginOutsourcing(ctx context.Context, orderID uuid.UUID) error
}

// RepairWriter is the slice of the outsourcing service the worker retries
// against.
type RepairWriter interface {
	CancelActiveRepairs(ctx context.Context, orderID uuid.UUID) (int, error)
}

// Worker consumes reconciliation tasks and replays the coupled write. Every
// handler it calls is idempotent, so asynq's at-least-once delivery is safe.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	orders  OrderWriter
	repairs RepairWriter
	log     *logger.Logger
}

// NewWorker creates the asynq server and registers the reconcile handler.
func NewWorker(cfg config.ReconcilerConfig, orders OrderWriter, repairs RepairWriter, log *logger.Logger) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		orders:  orders,
		repairs: repairs,
		log:     log,
	}
	w.mux.HandleFunc(TaskOrderReconcile, w.handleOrderReconcile)
	return w, nil
}

// Run starts the worker and blocks until Shutdown is called.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleOrderReconcile(ctx context.Context, task *asynq.Task) error {
	var p OrderReconcilePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		// A malformed payload never becomes valid; retrying is pointless.
		return fmt.Errorf("unmarshal reconcile payload: %v: %w", err, asynq.SkipRetry)
	}

	orderID, err := uuid.Parse(p.OrderID)
	if err != nil {
		return fmt.Errorf("parse order id %q: %v: %w", p.OrderID, err, asynq.SkipRetry)
	}

	w.log.Info("reconciling order", "order_id", p.OrderID, "action", p.Action, "reason", p.Reason)

	switch p.Action {
	case ActionCancelActiveRepairs:
		return w.cancelActiveRepairs(ctx, orderID)
	case ActionCompleteFromReturn:
		return w.completeFromReturn(ctx, orderID, p)
	case ActionBeginOutsourcing:
		return w.orders.BeginOutsourcing(ctx, orderID)
	default:
		return fmt.Errorf("unknown reconcile action %q: %w", p.Action, asynq.SkipRetry)
	}
}

func (w *Worker) cancelActiveRepairs(ctx context.Context, orderID uuid.UUID) error {
	count, err := w.repairs.CancelActiveRepairs(ctx, orderID)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("cancelled orphaned repairs", "order_id", orderID.String(), "count", count)
	}
	return nil
}

func (w *Worker) completeFromReturn(ctx context.Context, orderID uuid.UUID, p OrderReconcilePayload) error {
	actorID := uuid.Nil
	if p.ActorID != "" {
		parsed, err := uuid.Parse(p.ActorID)
		if err != nil {
			return fmt.Errorf("parse actor id %q: %v: %w", p.ActorID, err, asynq.SkipRetry)
		}
		actorID = parsed
	}
	return w.orders.CompleteFromReturn(ctx, orderID, actorID, p.RepairResult, p.CompletionNotes)
}
