// Package settings provides the company settings domain module.
package settings

import (
	"context"

	"taller_backend/internal/events"
	apphttp "taller_backend/internal/http"
	"taller_backend/internal/settings/cache"
	"taller_backend/internal/settings/handler"
	"taller_backend/internal/settings/repository"
	"taller_backend/internal/settings/service"
	"taller_backend/platform/config"
	"taller_backend/platform/logger"
	"taller_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
)

// Module represents the settings domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new settings module with all dependencies wired. The
// redis and minio clients may be nil; caching and logo uploads degrade
// gracefully.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, minioClient *minio.Client, cfg config.MinIOConfig, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache.New(redisClient, log), minioClient, cfg, bus, log)
	h := handler.New(svc, val)

	m := &Module{
		handler: h,
		service: svc,
	}

	// Settings are cached aggressively; drop the entry whenever they change.
	bus.Subscribe(events.SettingsChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		svc.InvalidateCache(ctx)
		return nil
	}))

	return m
}

// Service exposes the settings service for cross-module wiring (the
// outsourcing module's feature gate).
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "settings"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterProtectedRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
