package handler

import (
	"net/http"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/stats/service"
	"taller_backend/internal/stats/transport"
	"taller_backend/platform/httpkit"
	"taller_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for stats.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new stats handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats/technicians/:id", h.TechnicianStats)
}

// TechnicianStats handles GET /api/v1/stats/technicians/:id
func (h *Handler) TechnicianStats(c *gin.Context) {
	technicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid technician id", nil)
		return
	}

	var req transport.TechnicianStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	act := actor.Actor{ID: identity.UserID(), Role: actor.Role(identity.Role())}

	result, svcErr := h.svc.TechnicianStats(c.Request.Context(), act, technicianID, req)
	if httpkit.HandleError(c, svcErr) {
		return
	}

	httpkit.OK(c, result)
}
