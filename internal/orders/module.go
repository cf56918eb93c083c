// Package orders provides the service order lifecycle domain module.
package orders

import (
	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/orders/handler"
	"taller_backend/internal/orders/repository"
	"taller_backend/internal/orders/service"
	"taller_backend/internal/reconcile"
	"taller_backend/platform/logger"
	"taller_backend/platform/ordernum"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the orders domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new orders module with all dependencies wired. The
// repair canceller is attached afterwards via Service().SetRepairCanceller.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator, enq reconcile.Enqueuer) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ordernum.New(), bus, log, enq)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Service exposes the orders service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the orders repository for cross-module wiring (the
// customers module needs the per-customer order count).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "orders"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
