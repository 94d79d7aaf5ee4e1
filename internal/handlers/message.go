package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/realtime"
	"tutorhub/internal/repositories"
	"tutorhub/internal/telemetry"
)

// MessageHandler manages message and reaction mutations.
type MessageHandler struct {
	threadRepo   repositories.ThreadRepository
	messageRepo  repositories.MessageRepository
	reactionRepo repositories.ReactionRepository
	bus          realtime.Bus
	audit        *telemetry.AuditEmitter
	logger       *zap.Logger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(threadRepo repositories.ThreadRepository, messageRepo repositories.MessageRepository, reactionRepo repositories.ReactionRepository, bus realtime.Bus, audit *telemetry.AuditEmitter, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		threadRepo:   threadRepo,
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
		bus:          bus,
		audit:        audit,
		logger:       logger,
	}
}

// PostMessage appends a message to a thread. Any participant may send.
// Requires non-empty content or at least one image; both checks happen
// before any repository call.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content   string   `json:"content"`
		ImageURLs []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && len(req.ImageURLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs content or an image"})
		return
	}
	if len(req.ImageURLs) > models.MaxMessageImages {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d images per message", models.MaxMessageImages)})
		return
	}

	_, err = h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, repositories.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load thread"})
		return
	}

	member, err := h.threadRepo.IsParticipant(c.Request.Context(), threadID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a thread participant"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), threadID, userID, req.Content, req.ImageURLs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.publishMessageChange(c, "insert", threadID)
	c.JSON(http.StatusCreated, msg)
}

// ToggleReaction flips the caller's (message, emoji) reaction and reports
// whether it was added. Toggling twice restores the original state.
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	member, err := h.threadRepo.IsParticipant(c.Request.Context(), msg.ThreadID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a thread participant"})
		return
	}

	added, err := h.reactionRepo.ToggleReaction(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reaction"})
		return
	}

	h.publishMessageChange(c, "update", msg.ThreadID)
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// DeleteMessage removes one message. Allowed for the message's own sender or
// any tutor.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	userID := c.GetInt("userID")

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}
	if msg.ThreadID != threadID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to thread"})
		return
	}
	if msg.SenderID != userID && !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender or a tutor can delete"})
		return
	}

	if err := h.messageRepo.DeleteMessage(c.Request.Context(), messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	h.publishMessageChange(c, "delete", threadID)
	c.Status(http.StatusNoContent)
}

// BulkDeleteMessages removes an explicit id set. Tutor-only. The response
// carries only the aggregate affected count; ids that were already gone are
// not an error.
func (h *MessageHandler) BulkDeleteMessages(c *gin.Context) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return
	}

	var req struct {
		MessageIDs []int `json:"message_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.MessageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_ids required"})
		return
	}

	// Resolve affected threads before the rows disappear.
	threadIDs, err := h.messageRepo.ThreadIDs(c.Request.Context(), req.MessageIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve messages"})
		return
	}

	affected, err := h.messageRepo.BulkDeleteMessages(c.Request.Context(), req.MessageIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete messages"})
		return
	}

	for _, threadID := range threadIDs {
		h.publishMessageChange(c, "delete", threadID)
	}
	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("messages bulk delete: requested=%d affected=%d", len(req.MessageIDs), affected), requestIDFromContext(c), userIDPtr(c))
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (h *MessageHandler) publishMessageChange(c *gin.Context, action string, threadID int) {
	ctx := c.Request.Context()
	participantIDs, err := h.threadRepo.ParticipantIDs(ctx, threadID)
	if err != nil {
		h.logger.Warn("failed to resolve participants for fan-out", zap.Int("thread_id", threadID), zap.Error(err))
		participantIDs = nil
	}
	publishChange(ctx, h.bus, h.logger, models.ChangeEvent{
		Table:          models.TableMessages,
		Action:         action,
		ThreadID:       threadID,
		ParticipantIDs: participantIDs,
	})
}
