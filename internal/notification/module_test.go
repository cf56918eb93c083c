package notification

import (
	"context"
	"encoding/json"
	"testing"

	"taller_backend/internal/events"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
)

type emailOff struct{}

func (emailOff) GetEmailEnabled() bool       { return false }
func (emailOff) GetSMTPHost() string         { return "" }
func (emailOff) GetSMTPPort() int            { return 0 }
func (emailOff) GetSMTPUsername() string     { return "" }
func (emailOff) GetSMTPPassword() string     { return "" }
func (emailOff) GetEmailFromName() string    { return "" }
func (emailOff) GetEmailFromAddress() string { return "" }

func TestDomainEventsReachRealtimeClients(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	mod := NewModule(emailOff{}, bus, log)

	ch, unsubscribe := mod.Hub().Subscribe()
	defer unsubscribe()

	evt := events.ExternalRepairChanged{
		BaseEvent: events.NewBaseEvent(),
		RepairID:  uuid.New(),
		OrderID:   uuid.New(),
		Status:    "sent",
	}
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Repair changes touch the episode table and the embedding order view.
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case data := <-ch:
			var msg struct {
				Table string `json:"table"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got[msg.Table] = true
		default:
			t.Fatalf("expected 2 table notifications, got %d", i)
		}
	}
	if !got[TableExternalRepairs] || !got[TableServiceOrders] {
		t.Fatalf("tables notified = %v", got)
	}
}

func TestCompletedOrderWithEmailDisabledIsSilent(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	NewModule(emailOff{}, bus, log)

	evt := events.OrderCompleted{
		BaseEvent:     events.NewBaseEvent(),
		OrderID:       uuid.New(),
		OrderNumber:   "ORD-2026-00042",
		CustomerName:  "Laura Gómez",
		CustomerEmail: "laura@example.com",
		DeviceLabel:   "Samsung Galaxy S22",
		RepairResult:  "repaired",
	}
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("email-disabled sender must be a no-op, got: %v", err)
	}
}
