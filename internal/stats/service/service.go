// Package service implements technician productivity stats.
package service

import (
	"context"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/stats/transport"
	"taller_backend/platform/apperr"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the read-side port for stats.
type Store interface {
	DeliveredCount(ctx context.Context, technicianID uuid.UUID, since time.Time) (int, error)
	Revenue(ctx context.Context, technicianID uuid.UUID, since time.Time) (float64, error)
	AvgCompletionHours(ctx context.Context, technicianID uuid.UUID, since time.Time) (float64, error)
	InProgressCount(ctx context.Context, technicianID uuid.UUID) (int, error)
}

// Service implements stats operations.
type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new stats service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// TechnicianStats returns a technician's productivity summary for a calendar
// window. Technicians may only read their own numbers.
func (s *Service) TechnicianStats(ctx context.Context, act actor.Actor, technicianID uuid.UUID, req transport.TechnicianStatsRequest) (*transport.TechnicianStatsResponse, error) {
	if act.Is(actor.RoleTechnician) && act.ID != technicianID {
		return nil, apperr.Forbidden("technicians can only view their own stats")
	}

	period := req.Period
	if period == "" {
		period = transport.PeriodMonth
	}
	since, err := PeriodStart(s.now(), period)
	if err != nil {
		return nil, err
	}

	resp := &transport.TechnicianStatsResponse{
		TechnicianID: technicianID,
		Period:       period,
	}

	// Independent aggregates; fan out and fail together.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.store.DeliveredCount(gctx, technicianID, since)
		resp.DeliveredCount = count
		return err
	})
	g.Go(func() error {
		revenue, err := s.store.Revenue(gctx, technicianID, since)
		resp.Revenue = revenue
		return err
	})
	g.Go(func() error {
		hours, err := s.store.AvgCompletionHours(gctx, technicianID, since)
		resp.AvgCompletionHours = hours
		return err
	})
	g.Go(func() error {
		count, err := s.store.InProgressCount(gctx, technicianID)
		resp.InProgressCount = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// PeriodStart returns the calendar start of the reporting window: Monday of
// the current week, the first of the current month, or January 1st of the
// current year, in the reference time's location.
func PeriodStart(ref time.Time, period string) (time.Time, error) {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	switch period {
	case transport.PeriodWeek:
		offset := int(midnight.Weekday()) - int(time.Monday)
		if offset < 0 {
			offset += 7
		}
		return midnight.AddDate(0, 0, -offset), nil
	case transport.PeriodMonth:
		return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()), nil
	case transport.PeriodYear:
		return time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location()), nil
	default:
		return time.Time{}, apperr.Validation("unknown stats period")
	}
}
