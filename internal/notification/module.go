// Package notification bridges domain events to the outside world: the
// realtime SSE feed and customer emails.
package notification

import (
	"context"

	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/notification/email"
	"taller_backend/internal/notification/handler"
	"taller_backend/internal/notification/sse"
	"taller_backend/platform/config"
	"taller_backend/platform/logger"
)

// Module represents the notification module
type Module struct {
	handler *handler.Handler
	hub     *sse.Hub
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(cfg config.EmailConfig, bus events.Bus, log *logger.Logger) *Module {
	hub := sse.NewHub(log)
	sender := email.NewSender(cfg, log)

	for _, name := range SubscribedEvents() {
		tables := TablesFor(name)
		bus.Subscribe(name, events.HandlerFunc(func(_ context.Context, _ events.Event) error {
			for _, table := range tables {
				hub.Broadcast(table)
			}
			return nil
		}))
	}

	bus.Subscribe(events.OrderCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
		completed, ok := evt.(events.OrderCompleted)
		if !ok {
			return nil
		}
		return sender.SendPickupNotice(ctx, email.PickupNotice{
			OrderNumber:  completed.OrderNumber,
			CustomerName: completed.CustomerName,
			To:           completed.CustomerEmail,
			DeviceLabel:  completed.DeviceLabel,
			RepairResult: completed.RepairResult,
		})
	}))

	return &Module{
		handler: handler.New(hub),
		hub:     hub,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
}

// Hub exposes the SSE hub, mainly for tests and diagnostics.
func (m *Module) Hub() *sse.Hub {
	return m.hub
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
