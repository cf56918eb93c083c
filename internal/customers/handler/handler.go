package handler

import (
	"net/http"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/customers/service"
	"taller_backend/internal/customers/transport"
	"taller_backend/platform/httpkit"
	"taller_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for customers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new customers handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	customers.GET("", h.List)
	customers.POST("", h.Create)
	customers.GET("/by-cedula/:cedula", h.GetByCedula)
	customers.GET("/:id", h.Get)
	customers.PATCH("/:id", h.Update)
}

// RegisterAdminRoutes registers admin-only customer management.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/customers/:id", h.Delete)
}

func (h *Handler) bindActor(c *gin.Context) (actor.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return actor.Actor{}, false
	}
	return actor.Actor{ID: identity.UserID(), Role: actor.Role(identity.Role())}, true
}

func customerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid customer id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/v1/customers
func (h *Handler) List(c *gin.Context) {
	var req transport.ListCustomersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Get handles GET /api/v1/customers/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByCedula handles GET /api/v1/customers/by-cedula/:cedula
func (h *Handler) GetByCedula(c *gin.Context) {
	result, err := h.svc.GetByCedula(c.Request.Context(), c.Param("cedula"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Create handles POST /api/v1/customers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateCustomerRequest
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

	result, err := h.svc.Create(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Update handles PATCH /api/v1/customers/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req transport.UpdateCustomerRequest
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

	result, err := h.svc.Update(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/admin/customers/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}
	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), act, id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
