package service

import (
	"context"
	"testing"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/stats/transport"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	delivered  int
	revenue    float64
	avgHours   float64
	inProgress int

	since time.Time
}

func (f *fakeStore) DeliveredCount(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	f.since = since
	return f.delivered, nil
}

func (f *fakeStore) Revenue(context.Context, uuid.UUID, time.Time) (float64, error) {
	return f.revenue, nil
}

func (f *fakeStore) AvgCompletionHours(context.Context, uuid.UUID, time.Time) (float64, error) {
	return f.avgHours, nil
}

func (f *fakeStore) InProgressCount(context.Context, uuid.UUID) (int, error) {
	return f.inProgress, nil
}

func TestTechnicianStatsAssemblesAggregates(t *testing.T) {
	store := &fakeStore{delivered: 12, revenue: 840000, avgHours: 26.5, inProgress: 3}
	svc := New(store, logger.New("development"))
	techID := uuid.New()
	adm := actor.Actor{ID: uuid.New(), Role: actor.RoleAdmin}

	resp, err := svc.TechnicianStats(context.Background(), adm, techID, transport.TechnicianStatsRequest{Period: "month"})
	if err != nil {
		t.Fatalf("TechnicianStats: %v", err)
	}

	if resp.DeliveredCount != 12 || resp.Revenue != 840000 || resp.AvgCompletionHours != 26.5 || resp.InProgressCount != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Period != "month" {
		t.Fatalf("period = %q", resp.Period)
	}
}

func TestTechnicianCanOnlyViewOwnStats(t *testing.T) {
	svc := New(&fakeStore{}, logger.New("development"))
	tech := actor.Actor{ID: uuid.New(), Role: actor.RoleTechnician}

	_, err := svc.TechnicianStats(context.Background(), tech, uuid.New(), transport.TechnicianStatsRequest{})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := svc.TechnicianStats(context.Background(), tech, tech.ID, transport.TechnicianStatsRequest{}); err != nil {
		t.Fatalf("own stats: %v", err)
	}
}

func TestPeriodDefaultsToMonth(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, logger.New("development"))
	adm := actor.Actor{ID: uuid.New(), Role: actor.RoleAdmin}

	resp, err := svc.TechnicianStats(context.Background(), adm, uuid.New(), transport.TechnicianStatsRequest{})
	if err != nil {
		t.Fatalf("TechnicianStats: %v", err)
	}
	if resp.Period != transport.PeriodMonth {
		t.Fatalf("period = %q, want month", resp.Period)
	}
	if store.since.Day() != 1 {
		t.Fatalf("month window must start on the 1st, got day %d", store.since.Day())
	}
}

func TestPeriodStart(t *testing.T) {
	// Wednesday, September 17, 2025.
	ref := time.Date(2025, time.September, 17, 15, 30, 0, 0, time.UTC)

	week, err := PeriodStart(ref, transport.PeriodWeek)
	if err != nil {
		t.Fatalf("PeriodStart(week): %v", err)
	}
	if want := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC); !week.Equal(want) {
		t.Fatalf("week start = %v, want %v (Monday)", week, want)
	}

	month, err := PeriodStart(ref, transport.PeriodMonth)
	if err != nil {
		t.Fatalf("PeriodStart(month): %v", err)
	}
	if want := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC); !month.Equal(want) {
		t.Fatalf("month start = %v, want %v", month, want)
	}

	year, err := PeriodStart(ref, transport.PeriodYear)
	if err != nil {
		t.Fatalf("PeriodStart(year): %v", err)
	}
	if want := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC); !year.Equal(want) {
		t.Fatalf("year start = %v, want %v", year, want)
	}

	if _, err := PeriodStart(ref, "quarter"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown period, got %v", err)
	}
}

func TestPeriodStartSundayBelongsToPreviousWeek(t *testing.T) {
	// Sunday, September 21, 2025 still belongs to the week of Monday the 15th.
	ref := time.Date(2025, time.September, 21, 9, 0, 0, 0, time.UTC)

	week, err := PeriodStart(ref, transport.PeriodWeek)
	if err != nil {
		t.Fatalf("PeriodStart(week): %v", err)
	}
	if want := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC); !week.Equal(want) {
		t.Fatalf("week start = %v, want %v", week, want)
	}
}
