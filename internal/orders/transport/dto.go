// Package transport defines the HTTP request and response types for the
// orders module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateOrderRequest registers a single device for repair.
type CreateOrderRequest struct {
	CustomerID         uuid.UUID `json:"customer_id" validate:"required"`
	DeviceType         string    `json:"device_type" validate:"required,max=100"`
	DeviceBrand        string    `json:"device_brand" validate:"required,max=100"`
	DeviceModel        string    `json:"device_model" validate:"required,max=100"`
	SerialNumber       string    `json:"serial_number" validate:"omitempty,max=100"`
	ProblemDescription string    `json:"problem_description" validate:"required,max=2000"`
	Observations       string    `json:"observations" validate:"omitempty,max=2000"`
}

// DeviceInput is one device in a multi-device intake.
type DeviceInput struct {
	DeviceType         string `json:"device_type" validate:"required,max=100"`
	DeviceBrand        string `json:"device_brand" validate:"required,max=100"`
	DeviceModel        string `json:"device_model" validate:"required,max=100"`
	SerialNumber       string `json:"serial_number" validate:"omitempty,max=100"`
	ProblemDescription string `json:"problem_description" validate:"required,max=2000"`
	Observations       string `json:"observations" validate:"omitempty,max=2000"`
}

// CreateMultiDeviceRequest registers several devices for one customer in a
// single visit. Each device becomes its own order.
type CreateMultiDeviceRequest struct {
	CustomerID uuid.UUID     `json:"customer_id" validate:"required"`
	Devices    []DeviceInput `json:"devices" validate:"required,min=1,max=20,dive"`
}

// DeviceResult reports the outcome for one device of a multi-device intake.
type DeviceResult struct {
	Index       int        `json:"index"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	OrderNumber *string    `json:"order_number,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

// MultiDeviceResponse summarizes a multi-device intake. Created orders are
// kept even when later devices fail.
type MultiDeviceResponse struct {
	Results []DeviceResult `json:"results"`
	Created int            `json:"created"`
	Failed  int            `json:"failed"`
}

// TakeOrderRequest assigns a technician and starts work. TechnicianID is
// ignored for technician callers, who always take orders for themselves.
type TakeOrderRequest struct {
	TechnicianID *uuid.UUID `json:"technician_id"`
}

// CompleteOrderRequest records the repair outcome.
type CompleteOrderRequest struct {
	RepairResult    string `json:"repair_result" validate:"required,oneof=repaired not_repaired"`
	CompletionNotes string `json:"completion_notes" validate:"omitempty,max=2000"`
}

// DeliverOrderRequest hands the device back and optionally captures payment.
type DeliverOrderRequest struct {
	RepairCost    *float64 `json:"repair_cost" validate:"omitempty,gte=0"`
	PaymentMethod *string  `json:"payment_method" validate:"omitempty,oneof=efectivo transferencia tarjeta otro"`
	DeliveryNotes string   `json:"delivery_notes" validate:"omitempty,max=2000"`
}

// ListOrdersRequest filters the order list.
type ListOrdersRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=pending in_progress completed delivered"`
	CustomerID string `form:"customer_id" validate:"omitempty,uuid"`
}

// CustomerSummary is the customer slice embedded in order responses.
type CustomerSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Cedula   string    `json:"cedula"`
	Phone    *string   `json:"phone,omitempty"`
	Email    *string   `json:"email,omitempty"`
}

// PersonSummary is a staff member reference embedded in order responses.
type PersonSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName *string   `json:"full_name,omitempty"`
}

// ExternalRepairSummary is the active outsourcing episode, when one exists.
type ExternalRepairSummary struct {
	ID                  uuid.UUID  `json:"id"`
	WorkshopName        string     `json:"workshop_name"`
	Status              string     `json:"status"`
	SentDate            time.Time  `json:"sent_date"`
	EstimatedReturnDate *time.Time `json:"estimated_return_date,omitempty"`
}

// OrderResponse is the full order view returned by the API.
type OrderResponse struct {
	ID                 uuid.UUID  `json:"id"`
	OrderNumber        string     `json:"order_number"`
	Status             string     `json:"status"`
	DeviceType         string     `json:"device_type"`
	DeviceBrand        string     `json:"device_brand"`
	DeviceModel        string     `json:"device_model"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	ProblemDescription string     `json:"problem_description"`
	Observations       *string    `json:"observations,omitempty"`
	RepairResult       *string    `json:"repair_result,omitempty"`
	CompletionNotes    *string    `json:"completion_notes,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	DeliveryNotes      *string    `json:"delivery_notes,omitempty"`
	RepairCost         *float64   `json:"repair_cost,omitempty"`
	PaymentMethod      *string    `json:"payment_method,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Customer             *CustomerSummary       `json:"customer,omitempty"`
	ReceivedBy           *PersonSummary         `json:"received_by,omitempty"`
	AssignedTechnician   *PersonSummary         `json:"assigned_technician,omitempty"`
	CompletedBy          *PersonSummary         `json:"completed_by,omitempty"`
	PaymentCollectedBy   *PersonSummary         `json:"payment_collected_by,omitempty"`
	ActiveExternalRepair *ExternalRepairSummary `json:"active_external_repair,omitempty"`
}
