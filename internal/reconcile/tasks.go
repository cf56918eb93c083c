// Package reconcile repairs partial multi-record writes. Lifecycle operations
// that touch both a service order and its external repairs enqueue a
// reconciliation task when the second write fails; the worker retries the
// coupled write until the records converge.
package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskOrderReconcile is the asynq task type for order reconciliation.
const TaskOrderReconcile = "orders:reconcile"

// Reconciliation actions. Each names the coupled write that was left undone.
const (
	// ActionCancelActiveRepairs: the order was reset to pending but its
	// active external repairs were not cancelled.
	ActionCancelActiveRepairs = "cancel_active_repairs"
	// ActionCompleteFromReturn: an external repair was marked returned but
	// the order was not advanced to completed.
	ActionCompleteFromReturn = "complete_from_return"
	// ActionBeginOutsourcing: an external repair was created but the order
	// was not moved to in_progress.
	ActionBeginOutsourcing = "begin_outsourcing"
)

// OrderReconcilePayload is the task payload. RepairResult, CompletionNotes and
// ActorID are only set for ActionCompleteFromReturn; they carry the caller's
// original input so the retried write is identical to the failed one.
type OrderReconcilePayload struct {
	OrderID         string `json:"order_id"`
	Action          string `json:"action"`
	RepairResult    string `json:"repair_result,omitempty"`
	CompletionNotes string `json:"completion_notes,omitempty"`
	ActorID         string `json:"actor_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// NewOrderReconcileTask builds the asynq task for a payload.
func NewOrderReconcileTask(p OrderReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal reconcile payload: %w", err)
	}
	return asynq.NewTask(TaskOrderReconcile, data, asynq.MaxRetry(10)), nil
}
