package state

import (
	"testing"

	"taller_backend/platform/apperr"
)

func TestAdvanceForwardOnly(t *testing.T) {
	legal := []struct{ current, next Status }{
		{StatusSent, StatusInProcess},
		{StatusSent, StatusReady},
		{StatusInProcess, StatusReady},
	}
	for _, tc := range legal {
		if err := Advance(tc.current, tc.next); err != nil {
			t.Fatalf("Advance(%s, %s) unexpected error: %v", tc.current, tc.next, err)
		}
	}

	backward := []struct{ current, next Status }{
		{StatusInProcess, StatusInProcess},
		{StatusReady, StatusInProcess},
		{StatusReady, StatusReady},
	}
	for _, tc := range backward {
		if err := Advance(tc.current, tc.next); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("Advance(%s, %s) expected invalid transition, got %v", tc.current, tc.next, err)
		}
	}
}

func TestAdvanceRejectsTerminalTargets(t *testing.T) {
	for _, next := range []Status{StatusSent, StatusReturned, StatusCancelled} {
		if err := Advance(StatusSent, next); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("Advance(sent, %s) expected validation error, got %v", next, err)
		}
	}
}

func TestTerminalEpisodesNeverMove(t *testing.T) {
	for _, current := range []Status{StatusReturned, StatusCancelled} {
		if err := Advance(current, StatusReady); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("Advance(%s, ready) expected invalid transition, got %v", current, err)
		}
		if err := EnsureActive(current); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("EnsureActive(%s) expected invalid transition, got %v", current, err)
		}
	}
}
