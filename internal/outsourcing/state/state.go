// Package state defines the external repair episode lifecycle. Episodes move
// strictly forward: sent, in_process, ready, then returned; cancellation is
// allowed from any non-terminal status.
package state

import (
	"fmt"

	"taller_backend/platform/apperr"
)

// Status is the lifecycle status of an external repair episode.
type Status string

const (
	StatusSent      Status = "sent"
	StatusInProcess Status = "in_process"
	StatusReady     Status = "ready"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusInProcess, StatusReady, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the episode has ended. Terminal episodes never
// change again.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

var rank = map[Status]int{
	StatusSent:      0,
	StatusInProcess: 1,
	StatusReady:     2,
}

// Advance validates a forward progress move between the in-flight statuses.
// Returning and cancelling are separate operations with their own writes.
func Advance(current, next Status) error {
	if current.Terminal() {
		return apperr.InvalidTransition(fmt.Sprintf("repair is already %s", current))
	}
	if next != StatusInProcess && next != StatusReady {
		return apperr.Validation(fmt.Sprintf("status %q is not a progress update", next))
	}
	if rank[next] <= rank[current] {
		return apperr.InvalidTransition(fmt.Sprintf("cannot move repair from %q back to %q", current, next))
	}
	return nil
}

// EnsureActive returns an error when the episode can no longer be returned or
// cancelled.
func EnsureActive(current Status) error {
	if current.Terminal() {
		return apperr.InvalidTransition(fmt.Sprintf("repair is already %s", current))
	}
	return nil
}
