package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/observability"
	"tutorhub/internal/repositories"
)

// SubscribeHandler upgrades change-event subscriptions. One connection
// subscribes to exactly one scope; clients open a connection per scope.
type SubscribeHandler struct {
	hub        *Hub
	threadRepo repositories.ThreadRepository
	logger     *zap.Logger
}

// NewSubscribeHandler constructs a SubscribeHandler.
func NewSubscribeHandler(hub *Hub, threadRepo repositories.ThreadRepository, logger *zap.Logger) *SubscribeHandler {
	return &SubscribeHandler{hub: hub, threadRepo: threadRepo, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authorizes the requested scope, upgrades the connection, and keeps
// it registered until the peer goes away. Unsubscription happens exactly once
// on every exit path.
func (h *SubscribeHandler) Handle(c *gin.Context) {
	userID := c.GetInt("userID")
	role := c.GetString("role")

	ctx, span := otel.Tracer("tutorhub/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var scope string
	kind := c.Query("scope")
	switch kind {
	case "threads":
		scope = ScopeThreadList(userID)
	case "unread":
		scope = ScopeUnread(userID)
	case "thread":
		threadID, err := strconv.Atoi(c.Query("thread_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
			return
		}
		member, err := h.threadRepo.IsParticipant(ctx, threadID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for thread"})
			return
		}
		scope = ScopeThread(threadID)
	case "billing":
		if role != models.RoleTutor {
			c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
			return
		}
		scope = ScopeBilling(userID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scope"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		Role:        role,
		Scope:       scope,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Subscribe(scope, conn, info)
	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")

	go func() {
		defer func() {
			h.hub.Unsubscribe(scope, conn)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					h.logger.Debug("websocket read ended",
						zap.String("scope", scope),
						zap.String("conn_id", info.ConnID),
						zap.Duration("connected_for", time.Since(info.ConnectedAt)),
						zap.Error(err))
				}
				return
			}
		}
	}()
}
