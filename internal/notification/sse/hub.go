// Package sse implements the server-sent-events hub behind the realtime
// endpoint. Messages are table-change notifications only; clients refetch.
package sse

import (
	"encoding/json"
	"sync"

	"taller_backend/platform/logger"
)

// Message is a single table-change notification.
type Message struct {
	Table string `json:"table"`
}

// Hub fans table-change notifications out to connected clients. A slow
// client's buffer may fill; its messages are dropped rather than blocking the
// broadcast, which is safe because clients refetch on every notification.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	log     *logger.Logger
}

const clientBuffer = 16

// NewHub creates a new hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		log:     log,
	}
}

// Subscribe registers a client and returns its channel plus an unsubscribe
// function. The caller must call unsubscribe when the connection closes.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

// Broadcast sends a table-change notification to all connected clients.
func (h *Hub) Broadcast(table string) {
	data, err := json.Marshal(Message{Table: table})
	if err != nil {
		h.log.Error("failed to encode realtime message", "table", table, "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Buffer full; drop. The client refetches on the next message.
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
