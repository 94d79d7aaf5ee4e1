package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/realtime"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDPtr(c *gin.Context) *int {
	if userID := c.GetInt("userID"); userID != 0 {
		return &userID
	}
	return nil
}

func isTutor(c *gin.Context) bool {
	return c.GetString("role") == models.RoleTutor
}

// publishChange pushes a change event onto the bus. Delivery is best-effort:
// subscribers refetch on the next event, so a dropped event is logged only.
func publishChange(ctx context.Context, bus realtime.Bus, logger *zap.Logger, event models.ChangeEvent) {
	if bus == nil {
		return
	}
	if err := bus.PublishChange(ctx, event); err != nil {
		logger.Warn("change event publish failed",
			zap.String("table", event.Table),
			zap.String("action", event.Action),
			zap.Error(err))
	}
}
