// Package handler exposes the realtime SSE endpoint.
package handler

import (
	"io"
	"time"

	"taller_backend/internal/notification/sse"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// Handler streams table-change notifications to authenticated clients.
type Handler struct {
	hub *sse.Hub
}

// New creates a new realtime handler.
func New(hub *sse.Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterProtectedRoutes registers routes behind the auth middleware.
// EventSource cannot set headers, so the auth middleware also accepts the
// token as a query parameter on this route.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/realtime", h.Stream)
}

// Stream handles GET /api/v1/realtime
func (h *Handler) Stream(c *gin.Context) {
	ch, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("sync", string(data))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "keepalive")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
