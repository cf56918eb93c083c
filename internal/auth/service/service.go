// Package service implements authentication and staff-profile management.
package service

import (
	"context"
	"time"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/auth/repository"
	"taller_backend/internal/auth/transport"
	"taller_backend/internal/events"
	"taller_backend/platform/apperr"
	"taller_backend/platform/config"
	"taller_backend/platform/logger"
	"taller_backend/platform/phone"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenType = "access"

const invalidCredentialsMsg = "invalid email or password"

// Service implements login and profile operations.
type Service struct {
	repo   *repository.Repository
	cfg    config.AuthServiceConfig
	region string
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new auth service.
func New(repo *repository.Repository, cfg config.AuthServiceConfig, region string, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, region: region, bus: bus, log: log}
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResponse, error) {
	profile, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("login", req.Email, false, "unknown email")
			return nil, apperr.Unauthorized(invalidCredentialsMsg)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		s.log.AuthEvent("login", req.Email, false, "wrong password")
		return nil, apperr.Unauthorized(invalidCredentialsMsg)
	}

	token, err := s.signAccessToken(profile.ID, profile.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	s.log.AuthEvent("login", req.Email, true, "")

	return &transport.LoginResponse{
		AccessToken: token,
		Profile:     toResponse(profile),
	}, nil
}

// Me returns the acting user's own profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*transport.ProfileResponse, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(profile)
	return &resp, nil
}

// ListProfiles lists staff profiles, optionally filtered by role. Any
// authenticated staff member may read the directory (the intake form needs
// the technician list).
func (s *Service) ListProfiles(ctx context.Context, role string) ([]transport.ProfileResponse, error) {
	profiles, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, err
	}

	out := make([]transport.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, toResponse(&profiles[i]))
	}
	return out, nil
}

// CreateProfile registers a staff member. Admin only.
func (s *Service) CreateProfile(ctx context.Context, act actor.Actor, req transport.CreateProfileRequest) (*transport.ProfileResponse, error) {
	if !act.Is(actor.RoleAdmin) {
		return nil, apperr.Forbidden("only administrators can register staff")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := time.Now()
	profile := &repository.Profile{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.FullName != "" {
		profile.FullName = &req.FullName
	}
	if req.Sede != "" {
		profile.Sede = &req.Sede
	}
	if req.BranchPhone != "" {
		normalized := phone.NormalizeE164(req.BranchPhone, s.region)
		profile.BranchPhone = &normalized
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ProfileChanged{
		BaseEvent: events.NewBaseEvent(),
		ProfileID: profile.ID,
	})

	resp := toResponse(profile)
	return &resp, nil
}

func (s *Service) signAccessToken(userID uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": accessTokenType,
		"role": role,
		"exp":  time.Now().Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  time.Now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func toResponse(p *repository.Profile) transport.ProfileResponse {
	return transport.ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		Role:        p.Role,
		Sede:        p.Sede,
		BranchPhone: p.BranchPhone,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
