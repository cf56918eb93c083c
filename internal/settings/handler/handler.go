package handler

import (
	"net/http"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/settings/service"
	"taller_backend/internal/settings/transport"
	"taller_backend/platform/httpkit"
	"taller_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for company settings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new settings handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.Get)
}

// RegisterAdminRoutes registers admin-only settings management.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/settings", h.Update)
	rg.POST("/settings/logo", h.UploadLogo)
}

func (h *Handler) bindActor(c *gin.Context) (actor.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return actor.Actor{}, false
	}
	return actor.Actor{ID: identity.UserID(), Role: actor.Role(identity.Role())}, true
}

// Get handles GET /api/v1/settings
func (h *Handler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Update handles PUT /api/v1/admin/settings
func (h *Handler) Update(c *gin.Context) {
	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// UploadLogo handles POST /api/v1/admin/settings/logo
func (h *Handler) UploadLogo(c *gin.Context) {
	fileHeader, err := c.FormFile("logo")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "logo file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read logo file", nil)
		return
	}
	defer file.Close()

	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, svcErr := h.svc.UploadLogo(c.Request.Context(), act, file, fileHeader.Size, contentType)
	if httpkit.HandleError(c, svcErr) {
		return
	}

	httpkit.OK(c, result)
}
