// Package transport defines the HTTP request and response types for the
// outsourcing module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateWorkshopRequest registers an external workshop.
type CreateWorkshopRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"omitempty,max=200"`
	Phone         string `json:"phone" validate:"omitempty,max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	Specialty     string `json:"specialty" validate:"omitempty,max=200"`
}

// UpdateWorkshopRequest updates workshop data. Nil fields are left unchanged.
type UpdateWorkshopRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=200"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	Specialty     *string `json:"specialty" validate:"omitempty,max=200"`
	IsActive      *bool   `json:"is_active"`
}

// ListWorkshopsRequest filters the workshop list.
type ListWorkshopsRequest struct {
	ActiveOnly bool `form:"active_only"`
}

// WorkshopResponse is the workshop view returned by the API.
type WorkshopResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Specialty     *string   `json:"specialty,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SendToWorkshopRequest opens an outsourcing episode for an order.
type SendToWorkshopRequest struct {
	OrderID             uuid.UUID  `json:"order_id" validate:"required"`
	WorkshopID          uuid.UUID  `json:"workshop_id" validate:"required"`
	ProblemSent         string     `json:"problem_sent" validate:"required,max=2000"`
	EstimatedReturnDate *time.Time `json:"estimated_return_date"`
	Notes               string     `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateRepairStatusRequest moves an episode forward (in_process or ready).
type UpdateRepairStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_process ready"`
}

// MarkReturnedRequest closes an episode and records what the workshop did.
// RepairResult and CompletionNotes flow to the parent order's completion.
type MarkReturnedRequest struct {
	RepairResult    string   `json:"repair_result" validate:"required,oneof=repaired not_repaired"`
	WorkDone        string   `json:"work_done" validate:"omitempty,max=2000"`
	CompletionNotes string   `json:"completion_notes" validate:"omitempty,max=2000"`
	Cost            *float64 `json:"cost" validate:"omitempty,gte=0"`
}

// ListRepairsRequest filters the repair list.
type ListRepairsRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=sent in_process ready returned cancelled"`
	OrderID    string `form:"order_id" validate:"omitempty,uuid"`
	WorkshopID string `form:"workshop_id" validate:"omitempty,uuid"`
}

// RepairOrderSummary is the parent order slice of a repair response.
type RepairOrderSummary struct {
	ID           uuid.UUID `json:"id"`
	OrderNumber  string    `json:"order_number"`
	DeviceBrand  string    `json:"device_brand"`
	DeviceModel  string    `json:"device_model"`
	CustomerName string    `json:"customer_name"`
}

// RepairResponse is the external repair view returned by the API.
type RepairResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrderID             uuid.UUID  `json:"order_id"`
	WorkshopID          uuid.UUID  `json:"workshop_id"`
	WorkshopName        string     `json:"workshop_name"`
	Status              string     `json:"status"`
	ProblemSent         string     `json:"problem_sent"`
	SentDate            time.Time  `json:"sent_date"`
	EstimatedReturnDate *time.Time `json:"estimated_return_date,omitempty"`
	ActualReturnDate    *time.Time `json:"actual_return_date,omitempty"`
	WorkDone            *string    `json:"work_done,omitempty"`
	Cost                *float64   `json:"cost,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	SentByID            *uuid.UUID `json:"sent_by_id,omitempty"`
	ReceivedByID        *uuid.UUID `json:"received_by_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Order *RepairOrderSummary `json:"order,omitempty"`
}
