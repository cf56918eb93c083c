// Package customers provides the customer management domain module.
package customers

import (
	"taller_backend/internal/customers/handler"
	"taller_backend/internal/customers/repository"
	"taller_backend/internal/customers/service"
	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the customers domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new customers module with all dependencies wired.
// The order counter comes from the orders module and blocks deleting
// customers with repair history.
func NewModule(pool *pgxpool.Pool, orders service.OrderCounter, region string, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, orders, region, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "customers"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
