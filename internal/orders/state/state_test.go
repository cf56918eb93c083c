package state

import (
	"testing"

	"taller_backend/platform/apperr"
)

func TestApplyLegalTransitions(t *testing.T) {
	cases := []struct {
		current Status
		intent  Intent
		want    Status
	}{
		{StatusPending, IntentTake, StatusInProgress},
		{StatusPending, IntentOutsource, StatusInProgress},
		{StatusInProgress, IntentOutsource, StatusInProgress},
		{StatusInProgress, IntentComplete, StatusCompleted},
		{StatusCompleted, IntentDeliver, StatusDelivered},
		{StatusInProgress, IntentReopen, StatusPending},
		{StatusCompleted, IntentReopen, StatusPending},
	}

	for _, tc := range cases {
		got, err := Apply(tc.current, tc.intent)
		if err != nil {
			t.Fatalf("Apply(%s, %s) unexpected error: %v", tc.current, tc.intent, err)
		}
		if got != tc.want {
			t.Fatalf("Apply(%s, %s) = %s, want %s", tc.current, tc.intent, got, tc.want)
		}
	}
}

func TestApplyIllegalTransitions(t *testing.T) {
	cases := []struct {
		current Status
		intent  Intent
	}{
		{StatusInProgress, IntentTake},
		{StatusCompleted, IntentTake},
		{StatusDelivered, IntentTake},
		{StatusCompleted, IntentOutsource},
		{StatusDelivered, IntentOutsource},
		{StatusPending, IntentComplete},
		{StatusCompleted, IntentComplete},
		{StatusDelivered, IntentComplete},
		{StatusPending, IntentDeliver},
		{StatusInProgress, IntentDeliver},
		{StatusDelivered, IntentDeliver},
		{StatusPending, IntentReopen},
		{StatusDelivered, IntentReopen},
	}

	for _, tc := range cases {
		_, err := Apply(tc.current, tc.intent)
		if err == nil {
			t.Fatalf("Apply(%s, %s) expected error, got none", tc.current, tc.intent)
		}
		if !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("Apply(%s, %s) expected invalid transition, got %v", tc.current, tc.intent, err)
		}
	}
}

func TestDeliveredIsTerminal(t *testing.T) {
	for _, intent := range []Intent{IntentTake, IntentOutsource, IntentComplete, IntentDeliver, IntentReopen} {
		if _, err := Apply(StatusDelivered, intent); err == nil {
			t.Fatalf("no intent may leave delivered, but %s succeeded", intent)
		}
	}
}

func TestApplyUnknownIntent(t *testing.T) {
	_, err := Apply(StatusPending, Intent("archive"))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for unknown intent, got %v", err)
	}
}
