// Package state defines the service order lifecycle as an explicit state
// machine. All status changes flow through Apply; no other code writes the
// status field directly.
package state

import (
	"fmt"

	"taller_backend/platform/apperr"
)

// Status is the primary lifecycle status of a service order.
// An outsourced order is represented as StatusInProgress plus an active
// external repair episode, not as a distinct status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDelivered  Status = "delivered"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelivered:
		return true
	}
	return false
}

// Intent is a requested lifecycle transition.
type Intent string

const (
	// IntentTake assigns a technician and starts work.
	IntentTake Intent = "take"
	// IntentOutsource sends the device to an external workshop; the order
	// moves to in_progress without a technician.
	IntentOutsource Intent = "outsource"
	// IntentComplete records the repair outcome.
	IntentComplete Intent = "complete"
	// IntentDeliver hands the device back to the customer.
	IntentDeliver Intent = "deliver"
	// IntentReopen resets the order to pending, clearing derived state.
	IntentReopen Intent = "reopen"
)

// RepairResult is the outcome recorded at completion.
type RepairResult string

const (
	ResultRepaired    RepairResult = "repaired"
	ResultNotRepaired RepairResult = "not_repaired"
)

// Valid reports whether the repair result is one of the known values.
func (r RepairResult) Valid() bool {
	return r == ResultRepaired || r == ResultNotRepaired
}

// Apply validates the intent against the current status and returns the new
// status. It is a pure function; side-effect field computation belongs to the
// service layer.
func Apply(current Status, intent Intent) (Status, error) {
	switch intent {
	case IntentTake:
		if current != StatusPending {
			return "", transitionErr(current, intent)
		}
		return StatusInProgress, nil

	case IntentOutsource:
		// Outsourcing is offered from the pending queue and, when a
		// technician decides the work needs a specialist, from in_progress.
		// The single-active-episode rule is enforced by the outsourcing
		// workflow, not here.
		if current != StatusPending && current != StatusInProgress {
			return "", transitionErr(current, intent)
		}
		return StatusInProgress, nil

	case IntentComplete:
		if current != StatusInProgress {
			return "", transitionErr(current, intent)
		}
		return StatusCompleted, nil

	case IntentDeliver:
		if current != StatusCompleted {
			return "", transitionErr(current, intent)
		}
		return StatusDelivered, nil

	case IntentReopen:
		// delivered is terminal; pending has nothing to reset.
		if current == StatusPending || current == StatusDelivered {
			return "", transitionErr(current, intent)
		}
		return StatusPending, nil

	default:
		return "", apperr.BadRequest(fmt.Sprintf("unknown lifecycle intent %q", intent))
	}
}

func transitionErr(current Status, intent Intent) error {
	return apperr.InvalidTransition(fmt.Sprintf("cannot %s an order in status %q", intent, current))
}
