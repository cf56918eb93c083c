// Package service implements company settings management: the singleton
// settings row, its Redis cache, and the logo asset in object storage.
package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/events"
	"taller_backend/internal/settings/cache"
	"taller_backend/internal/settings/repository"
	"taller_backend/internal/settings/transport"
	"taller_backend/platform/apperr"
	"taller_backend/platform/config"
	"taller_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// Store is the persistence port for settings.
type Store interface {
	Get(ctx context.Context) (*repository.Settings, error)
	Upsert(ctx context.Context, s *repository.Settings) error
}

var allowedLogoTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Service implements settings operations.
type Service struct {
	store Store
	cache *cache.Cache
	minio *minio.Client
	cfg   config.MinIOConfig
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new settings service. The minio client may be nil when object
// storage is not configured; logo uploads are then rejected.
func New(store Store, c *cache.Cache, minioClient *minio.Client, cfg config.MinIOConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: store,
		cache: c,
		minio: minioClient,
		cfg:   cfg,
		bus:   bus,
		log:   log,
	}
}

// Get returns the company settings, preferring the cache. A database row is
// cached on the way out; when no row exists yet, defaults are returned
// without caching.
func (s *Service) Get(ctx context.Context) (*transport.SettingsResponse, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	stored, err := s.store.Get(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			resp := defaultSettings()
			return resp, nil
		}
		return nil, err
	}

	resp := toResponse(stored)
	s.cache.Set(ctx, resp)
	return resp, nil
}

// Update writes company settings. Admin only.
func (s *Service) Update(ctx context.Context, act actor.Actor, req transport.UpdateSettingsRequest) (*transport.SettingsResponse, error) {
	if !act.Is(actor.RoleAdmin) {
		return nil, apperr.Forbidden("only administrators can change settings")
	}

	stored, err := s.loadOrInit(ctx)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		stored.CompanyName = *req.CompanyName
	}
	if req.Nit != nil {
		stored.Nit = req.Nit
	}
	if req.Address != nil {
		stored.Address = req.Address
	}
	if req.Phone != nil {
		stored.Phone = req.Phone
	}
	if req.Email != nil {
		stored.Email = req.Email
	}
	if req.FeaturesEnabled != nil {
		stored.FeaturesEnabled = req.FeaturesEnabled
	}
	if req.RequiredFields != nil {
		stored.RequiredFields = req.RequiredFields
	}

	if err := s.store.Upsert(ctx, stored); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, stored.ID)
	return toResponse(stored), nil
}

// UploadLogo stores a company logo in object storage and records its URL.
// Admin only.
func (s *Service) UploadLogo(ctx context.Context, act actor.Actor, file io.Reader, size int64, contentType string) (*transport.SettingsResponse, error) {
	if !act.Is(actor.RoleAdmin) {
		return nil, apperr.Forbidden("only administrators can change settings")
	}
	if s.minio == nil {
		return nil, apperr.Validation("object storage is not configured")
	}

	ext, ok := allowedLogoTypes[contentType]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unsupported logo content type %q", contentType))
	}
	if size <= 0 || size > s.cfg.GetMinIOMaxFileSize() {
		return nil, apperr.Validation(fmt.Sprintf("logo must be between 1 byte and %d bytes", s.cfg.GetMinIOMaxFileSize()))
	}

	bucket := s.cfg.GetMinioBucketCompanyAssets()
	objectName := path.Join("logos", uuid.NewString()+ext)

	_, err := s.minio.PutObject(ctx, bucket, objectName, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, apperr.Storage("failed to store logo", err)
	}

	scheme := "http"
	if s.cfg.GetMinIOUseSSL() {
		scheme = "https"
	}
	logoURL := fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.GetMinIOEndpoint(), bucket, objectName)

	stored, err := s.loadOrInit(ctx)
	if err != nil {
		return nil, err
	}
	stored.LogoURL = &logoURL

	if err := s.store.Upsert(ctx, stored); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, stored.ID)
	return toResponse(stored), nil
}

// OutsourcingEnabled implements the outsourcing module's feature gate.
// Missing settings or flags default to enabled.
func (s *Service) OutsourcingEnabled(ctx context.Context) bool {
	resp, err := s.Get(ctx)
	if err != nil {
		s.log.Warn("feature gate falling back to enabled", "error", err.Error())
		return true
	}
	enabled, ok := resp.FeaturesEnabled[transport.FeatureOutsourcing]
	if !ok {
		return true
	}
	return enabled
}

// InvalidateCache drops the cached settings entry. Wired to the settings
// changed event so every instance converges after an update.
func (s *Service) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

func (s *Service) loadOrInit(ctx context.Context) (*repository.Settings, error) {
	stored, err := s.store.Get(ctx)
	if err == nil {
		return stored, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	defaults := defaultSettings()
	return &repository.Settings{
		ID:              uuid.New(),
		CompanyName:     defaults.CompanyName,
		FeaturesEnabled: defaults.FeaturesEnabled,
		RequiredFields:  defaults.RequiredFields,
		UpdatedAt:       time.Now(),
	}, nil
}

func (s *Service) publishChanged(ctx context.Context, settingsID uuid.UUID) {
	s.cache.Invalidate(ctx)
	s.bus.Publish(ctx, events.SettingsChanged{
		BaseEvent:  events.NewBaseEvent(),
		SettingsID: settingsID,
	})
}

func defaultSettings() *transport.SettingsResponse {
	return &transport.SettingsResponse{
		CompanyName: "Taller",
		FeaturesEnabled: map[string]bool{
			transport.FeatureOutsourcing:        true,
			transport.FeatureMultiDevice:        true,
			transport.FeatureEmailNotifications: false,
		},
		RequiredFields: map[string]bool{
			transport.FieldSerialNumber:  false,
			transport.FieldObservations:  false,
			transport.FieldCustomerEmail: false,
		},
		Source: transport.SourceServer,
	}
}

func toResponse(s *repository.Settings) *transport.SettingsResponse {
	return &transport.SettingsResponse{
		ID:              s.ID,
		CompanyName:     s.CompanyName,
		Nit:             s.Nit,
		Address:         s.Address,
		Phone:           s.Phone,
		Email:           s.Email,
		LogoURL:         s.LogoURL,
		FeaturesEnabled: s.FeaturesEnabled,
		RequiredFields:  s.RequiredFields,
		UpdatedAt:       s.UpdatedAt,
		Source:          transport.SourceServer,
	}
}
