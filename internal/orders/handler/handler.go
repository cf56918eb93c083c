package handler

import (
	"net/http"

	"taller_backend/internal/auth/actor"
	"taller_backend/internal/orders/service"
	"taller_backend/internal/orders/transport"
	"taller_backend/platform/httpkit"
	"taller_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid order id"
)

// Handler handles HTTP requests for service orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("", h.List)
	orders.POST("", h.Create)
	orders.POST("/batch", h.CreateMultiDevice)
	orders.GET("/:id", h.Get)
	orders.POST("/:id/take", h.Take)
	orders.POST("/:id/complete", h.Complete)
	orders.POST("/:id/deliver", h.Deliver)
	orders.POST("/:id/return-to-pending", h.ReturnToPending)
}

// RegisterAdminRoutes registers admin-only order management.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/orders/:id", h.Delete)
}

func (h *Handler) bindActor(c *gin.Context) (actor.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return actor.Actor{}, false
	}
	return actor.Actor{ID: identity.UserID(), Role: actor.Role(identity.Role())}, true
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
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

	result, err := h.svc.List(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Get handles GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), act, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Create handles POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
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

// CreateMultiDevice handles POST /api/v1/orders/batch
func (h *Handler) CreateMultiDevice(c *gin.Context) {
	var req transport.CreateMultiDeviceRequest
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

	result, err := h.svc.CreateMultiDevice(c.Request.Context(), act, req)
	if httpkit.HandleError(c, err) {
		return
	}

	// 207-style partial success: the body reports the per-device outcome.
	status := http.StatusCreated
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	httpkit.JSON(c, status, result)
}

// Take handles POST /api/v1/orders/:id/take
func (h *Handler) Take(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.TakeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Take(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles POST /api/v1/orders/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.CompleteOrderRequest
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

	result, err := h.svc.Complete(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Deliver handles POST /api/v1/orders/:id/deliver
func (h *Handler) Deliver(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.DeliverOrderRequest
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

	result, err := h.svc.Deliver(c.Request.Context(), act, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ReturnToPending handles POST /api/v1/orders/:id/return-to-pending
func (h *Handler) ReturnToPending(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	act, ok := h.bindActor(c)
	if !ok {
		return
	}

	result, err := h.svc.ReturnToPending(c.Request.Context(), act, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/admin/orders/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := orderID(c)
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
