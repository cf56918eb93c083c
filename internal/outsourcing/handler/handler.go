package handler

import (
	"net/http"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/outsourcing/service"
	"taller_backend/internal/outsourcing/transport"
	"taller_backend/platform/httpkit"
	"taller_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for workshops and external repairs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new outsourcing handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	workshops := rg.Group("/workshops")
	workshops.GET("", h.ListWorkshops)
	workshops.POST("", h.CreateWorkshop)
	workshops.PATCH("/:id", h.UpdateWorkshop)
	workshops.DELETE("/:id", h.DeleteWorkshop)

	repairs := rg.Group("/external-repairs")
	repairs.GET("", h.ListRepairs)
	repairs.POST("", h.SendToWorkshop)
	repairs.POST("/:id/status", h.UpdateStatus)
	repairs.POST("/:id/return", h.MarkReturned)
	repairs.POST("/:id/cancel", h.CancelRepair)
}

func (h *Handler) bindActor(c *gin.Context) (actor.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return actor.Actor{}, false
	}
	return actor.Actor{ID: identity.UserID(), Role: actor.Role(identity.Role())}, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// ListWorkshops handles GET /api/v1/workshops
func (h *Handler) ListWorkshops(c *gin.Context) {
	var req transport.ListWorkshopsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.ListWorkshops(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// CreateWorkshop handles POST /api/v1/workshops
func (h *Handler) CreateWorkshop(c *gin.Context) {
	var req transport.CreateWorkshopRequest
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

	result, err := h.svc.CreateWorkshop(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateWorkshop handles PATCH /api/v1/workshops/:id
func (h *Handler) UpdateWorkshop(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateWorkshopRequest
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

	result, err := h.svc.UpdateWorkshop(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// DeleteWorkshop handles DELETE /api/v1/workshops/:id
func (h *Handler) DeleteWorkshop(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteWorkshop(c.Request.Context(), act, id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// ListRepairs handles GET /api/v1/external-repairs
func (h *Handler) ListRepairs(c *gin.Context) {
	var req transport.ListRepairsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListRepairs(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// SendToWorkshop handles POST /api/v1/external-repairs
func (h *Handler) SendToWorkshop(c *gin.Context) {
	var req transport.SendToWorkshopRequest
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

	result, err := h.svc.SendToWorkshop(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateStatus handles POST /api/v1/external-repairs/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateRepairStatusRequest
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

	result, err := h.svc.UpdateStatus(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// MarkReturned handles POST /api/v1/external-repairs/:id/return
func (h *Handler) MarkReturned(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.MarkReturnedRequest
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

	result, err := h.svc.MarkReturned(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// CancelRepair handles POST /api/v1/external-repairs/:id/cancel
func (h *Handler) CancelRepair(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	result, err := h.svc.CancelRepair(c.Request.Context(), act, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
