// Package ws keeps per-user WebSocket sessions for the live notification
// feed. Every rendered notification is mirrored to the owner's open
// sessions, best effort.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// maxConnsPerUser caps sessions per user.
const maxConnsPerUser = 10

// Hub tracks open connections keyed by user ID.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[*websocket.Conn]bool
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Add registers a connection for a user. Connections beyond the per-user
// cap are rejected.
func (h *Hub) Add(userID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.conns[userID]) >= maxConnsPerUser {
		h.logger.Warnf("Max connections reached for user %s", userID)
		return false
	}
	h.conns[userID][conn] = true
	h.logger.Infof("Added connection for user %s (total: %d)", userID, len(h.conns[userID]))
	return true
}

// Remove drops a connection for a user.
func (h *Hub) Remove(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
		h.logger.Infof("Removed connection for user %s (remaining: %d)", userID, len(conns))
	}
}

// SendToUser writes a message to every open session of a user. Sessions
// that fail to write are evicted.
func (h *Hub) SendToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.conns[userID]
	if !ok {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to write to user %s session: %v", userID, err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.conns, userID)
	}
}
