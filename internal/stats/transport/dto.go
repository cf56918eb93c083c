// Package transport defines the HTTP request and response types for the
// stats module.
package transport

import (
	"github.com/google/uuid"
)

// Stats periods. Windows are calendar-aligned: current week (starting
// Monday), current month, current year.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// TechnicianStatsRequest selects the reporting window.
type TechnicianStatsRequest struct {
	Period string `form:"period" validate:"omitempty,oneof=week month year"`
}

// TechnicianStatsResponse is a technician's productivity summary. Counts and
// revenue only consider delivered orders; in-progress load is current.
type TechnicianStatsResponse struct {
	TechnicianID       uuid.UUID `json:"technician_id"`
	Period             string    `json:"period"`
	DeliveredCount     int       `json:"delivered_count"`
	Revenue            float64   `json:"revenue"`
	AvgCompletionHours float64   `json:"avg_completion_hours"`
	InProgressCount    int       `json:"in_progress_count"`
}
