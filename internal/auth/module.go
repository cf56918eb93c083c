// Package auth provides the authentication and staff-profile domain module.
package auth

import (
	"taller_backend/internal/auth/handler"
	"taller_backend/internal/auth/repository"
	"taller_backend/internal/auth/service"
	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/platform/config"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the auth domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new auth module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, region string, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, region, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Service exposes the auth service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterProtectedRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
