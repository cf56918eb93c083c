// Package outsourcing provides the external workshop and repair episode
// domain module.
package outsourcing

import (
	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/outsourcing/handler"
	"taller_backend/internal/outsourcing/repository"
	"taller_backend/internal/outsourcing/service"
	"taller_backend/internal/reconcile"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the outsourcing domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new outsourcing module with all dependencies wired. The
// order workflow and feature gate are attached afterwards via the service's
// setters.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator, enq reconcile.Enqueuer) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log, enq)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Service exposes the outsourcing service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "outsourcing"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
