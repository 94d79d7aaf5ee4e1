package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/observability"
)

// Conn is the subset of *websocket.Conn the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub owns the map from scope key to live subscriber connections. Teardown
// is explicit: a connection must be unsubscribed exactly once per scope on
// every exit path, otherwise navigation churn produces refetch storms.
type Hub struct {
	mu     sync.RWMutex
	scopes map[string]map[Conn]ConnInfo
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		scopes: make(map[string]map[Conn]ConnInfo),
		logger: logger,
	}
}

// Subscribe registers a connection under a scope key.
func (h *Hub) Subscribe(scope string, conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.scopes[scope]; !ok {
		h.scopes[scope] = make(map[Conn]ConnInfo)
	}
	h.scopes[scope][conn] = info
}

// Unsubscribe removes a connection from a scope. Safe to call for an
// already-removed connection.
func (h *Hub) Unsubscribe(scope string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.scopes[scope]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.scopes, scope)
		}
	}
}

// Broadcast delivers a refetch event to every subscriber of the scope.
// A failed write closes and removes that connection.
func (h *Hub) Broadcast(scope string, event models.RefetchEvent) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.scopes[scope]))
	for conn := range h.scopes[scope] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("websocket write failed", zap.String("scope", scope), zap.Error(err))
			conn.Close()
			h.Unsubscribe(scope, conn)
			observability.IncWSEvent(scopeKind(scope), "ws_error")
		}
	}
}

// SubscriberCount reports the live subscriber count for a scope.
func (h *Hub) SubscriberCount(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}

func scopeKind(scope string) string {
	for i := 0; i < len(scope); i++ {
		if scope[i] == ':' {
			return scope[:i]
		}
	}
	return scope
}
