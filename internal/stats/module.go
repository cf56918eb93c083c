// Package stats provides the technician productivity stats module.
package stats

import (
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/stats/handler"
	"taller_backend/internal/stats/repository"
	"taller_backend/internal/stats/service"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the stats domain module
type Module struct {
	handler *handler.Handler
}

// NewModule creates a new stats module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "stats"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
