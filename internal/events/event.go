// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"taller_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Service Order Events
// =============================================================================

// OrderCreated is published when a new service order is taken in.
type OrderCreated struct {
	BaseEvent
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	CustomerID  uuid.UUID `json:"customerId"`
}

func (e OrderCreated) EventName() string { return "orders.created" }

// OrderStatusChanged is published after any successful lifecycle transition.
type OrderStatusChanged struct {
	BaseEvent
	OrderID uuid.UUID `json:"orderId"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e OrderStatusChanged) EventName() string { return "orders.status.changed" }

// OrderCompleted is published when an order reaches completed, whether by a
// technician or by a workshop return. Carries enough context for the
// customer-facing "ready for pickup" notification.
type OrderCompleted struct {
	BaseEvent
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	DeviceLabel   string    `json:"deviceLabel"`
	RepairResult  string    `json:"repairResult"`
}

func (e OrderCompleted) EventName() string { return "orders.completed" }

// OrderDeleted is published when an order is removed via the admin escape hatch.
type OrderDeleted struct {
	BaseEvent
	OrderID uuid.UUID `json:"orderId"`
}

func (e OrderDeleted) EventName() string { return "orders.deleted" }

// =============================================================================
// Customer Events
// =============================================================================

// CustomerChanged is published when a customer row is created, updated or
// deleted. Subscribers refetch; the event deliberately carries no diff.
type CustomerChanged struct {
	BaseEvent
	CustomerID uuid.UUID `json:"customerId"`
	Action     string    `json:"action"` // "created", "updated", "deleted"
}

func (e CustomerChanged) EventName() string { return "customers.changed" }

// =============================================================================
// Outsourcing Events
// =============================================================================

// ExternalRepairChanged is published when an outsourcing episode is created or
// its status moves.
type ExternalRepairChanged struct {
	BaseEvent
	RepairID uuid.UUID `json:"repairId"`
	OrderID  uuid.UUID `json:"orderId"`
	Status   string    `json:"status"`
}

func (e ExternalRepairChanged) EventName() string { return "outsourcing.repair.changed" }

// WorkshopChanged is published when an external workshop is created, updated,
// toggled or deleted.
type WorkshopChanged struct {
	BaseEvent
	WorkshopID uuid.UUID `json:"workshopId"`
}

func (e WorkshopChanged) EventName() string { return "outsourcing.workshop.changed" }

// =============================================================================
// Settings & Profile Events
// =============================================================================

// SettingsChanged is published after the company settings row is upserted.
// The settings cache invalidates itself on this event.
type SettingsChanged struct {
	BaseEvent
	SettingsID uuid.UUID `json:"settingsId"`
}

func (e SettingsChanged) EventName() string { return "settings.changed" }

// ProfileChanged is published when a staff profile is created or updated.
type ProfileChanged struct {
	BaseEvent
	ProfileID uuid.UUID `json:"profileId"`
}

func (e ProfileChanged) EventName() string { return "profiles.changed" }
