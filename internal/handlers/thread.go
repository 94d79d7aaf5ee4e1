package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/realtime"
	"tutorhub/internal/repositories"
	"tutorhub/internal/telemetry"
)

const defaultThreadListLimit = 50

// ThreadHandler manages thread endpoints: list aggregation, detail assembly,
// creation, and lifecycle mutations.
type ThreadHandler struct {
	threadRepo   repositories.ThreadRepository
	messageRepo  repositories.MessageRepository
	reactionRepo repositories.ReactionRepository
	bus          realtime.Bus
	audit        *telemetry.AuditEmitter
	logger       *zap.Logger
}

// NewThreadHandler builds a ThreadHandler.
func NewThreadHandler(threadRepo repositories.ThreadRepository, messageRepo repositories.MessageRepository, reactionRepo repositories.ReactionRepository, bus realtime.Bus, audit *telemetry.AuditEmitter, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{
		threadRepo:   threadRepo,
		messageRepo:  messageRepo,
		reactionRepo: reactionRepo,
		bus:          bus,
		audit:        audit,
		logger:       logger,
	}
}

// ListThreads returns thread previews for the caller, most recent activity
// first, plus the global unread badge count (the sum of per-row unread
// counts). A user with zero threads gets an empty list, not an error.
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	userID := c.GetInt("userID")

	limit := defaultThreadListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	previews, err := h.threadRepo.ListThreadPreviews(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load threads"})
		return
	}

	unreadTotal := 0
	for _, p := range previews {
		unreadTotal += p.UnreadCount
	}

	c.JSON(http.StatusOK, gin.H{"threads": previews, "unread_total": unreadTotal})
}

// UnreadCount returns the caller's global unread message count.
func (h *ThreadHandler) UnreadCount(c *gin.Context) {
	userID := c.GetInt("userID")

	count, err := h.threadRepo.CountUnread(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

type messageView struct {
	models.Message
	Reactions []models.ReactionSummary `json:"reactions"`
}

// GetThread assembles the full detail view: thread metadata, participants,
// ordered messages with resolved senders, and per-message reaction summaries.
// A missing thread is not a fault: it was deleted between fetches, so the
// response carries a null thread and the client empties the view.
// Viewing marks the thread read, fire-and-forget.
func (h *ThreadHandler) GetThread(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	userID := c.GetInt("userID")

	thread, err := h.threadRepo.GetThread(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, repositories.ErrThreadNotFound) {
			c.JSON(http.StatusOK, gin.H{"thread": nil})
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

	participants, err := h.threadRepo.ListParticipants(c.Request.Context(), threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	msgs, err := h.messageRepo.ListThreadMessages(c.Request.Context(), threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	messageIDs := make([]int, 0, len(msgs))
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
	}
	reactions, err := h.reactionRepo.ListReactions(c.Request.Context(), messageIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reactions"})
		return
	}
	summaries := models.GroupReactions(reactions, userID)

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		view := messageView{Message: m, Reactions: summaries[m.ID]}
		if view.Reactions == nil {
			view.Reactions = []models.ReactionSummary{}
		}
		views = append(views, view)
	}

	h.markReadAsync(threadID, userID)

	c.JSON(http.StatusOK, gin.H{
		"thread":       thread,
		"participants": participants,
		"messages":     views,
	})
}

// markReadAsync advances the read watermark in the background. Failure never
// blocks rendering; the watermark is idempotent and eventually consistent.
func (h *ThreadHandler) markReadAsync(threadID, userID int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.threadRepo.MarkThreadRead(ctx, threadID, userID); err != nil {
			h.logger.Warn("mark thread read failed",
				zap.Int("thread_id", threadID),
				zap.Int("user_id", userID),
				zap.Error(err))
			return
		}
		publishChange(ctx, h.bus, h.logger, models.ChangeEvent{
			Table:          models.TableThreads,
			Action:         "update",
			ThreadID:       threadID,
			ParticipantIDs: []int{userID},
		})
	}()
}

// MarkRead explicitly advances the caller's read watermark. Idempotent.
func (h *ThreadHandler) MarkRead(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}
	userID := c.GetInt("userID")

	if err := h.threadRepo.MarkThreadRead(c.Request.Context(), threadID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark thread read"})
		return
	}
	publishChange(c.Request.Context(), h.bus, h.logger, models.ChangeEvent{
		Table:          models.TableThreads,
		Action:         "update",
		ThreadID:       threadID,
		ParticipantIDs: []int{userID},
	})
	c.Status(http.StatusNoContent)
}

// CreateThread creates an announcement thread. Tutor-only; non-tutors are
// rejected before any repository call. The recipient scope is validated
// against the provided group/recipient ids the same way.
func (h *ThreadHandler) CreateThread(c *gin.Context) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Subject       string   `json:"subject" binding:"required"`
		Content       string   `json:"content"`
		RecipientType string   `json:"recipient_type" binding:"required"`
		GroupID       *int     `json:"group_id"`
		RecipientIDs  []int    `json:"recipient_ids"`
		ImageURLs     []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.RecipientType {
	case models.RecipientAll:
	case models.RecipientGroup:
		if req.GroupID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group recipient requires a group id"})
			return
		}
	case models.RecipientSpecific:
		if len(req.RecipientIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "specific recipients require at least one id"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient type"})
		return
	}
	if req.Content == "" && len(req.ImageURLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "announcement needs content or an image"})
		return
	}
	if len(req.ImageURLs) > models.MaxMessageImages {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d images per message", models.MaxMessageImages)})
		return
	}

	threadID, err := h.threadRepo.CreateThread(c.Request.Context(), req.Subject, userID, req.RecipientType, req.GroupID, req.RecipientIDs, req.Content, req.ImageURLs)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create thread"})
		return
	}

	h.publishThreadChange(c.Request.Context(), "insert", threadID)
	h.audit.Emit(c.Request.Context(), "INFO", "thread created", requestIDFromContext(c), userIDPtr(c))
	c.JSON(http.StatusCreated, gin.H{"thread_id": threadID})
}

// ArchiveThread flags a single thread archived. Tutor-only, reversible.
func (h *ThreadHandler) ArchiveThread(c *gin.Context) {
	threadID, ok := h.tutorThreadID(c)
	if !ok {
		return
	}
	h.mutateThreads(c, "archive", []int{threadID})
}

// DeleteThread permanently removes a single thread. Tutor-only.
func (h *ThreadHandler) DeleteThread(c *gin.Context) {
	threadID, ok := h.tutorThreadID(c)
	if !ok {
		return
	}
	h.mutateThreads(c, "delete", []int{threadID})
}

// BulkArchiveThreads archives an explicit id set. Tutor-only; the response
// carries only the aggregate affected count.
func (h *ThreadHandler) BulkArchiveThreads(c *gin.Context) {
	ids, ok := h.tutorThreadIDs(c)
	if !ok {
		return
	}
	h.mutateThreads(c, "archive", ids)
}

// BulkDeleteThreads permanently removes an explicit id set. Tutor-only.
func (h *ThreadHandler) BulkDeleteThreads(c *gin.Context) {
	ids, ok := h.tutorThreadIDs(c)
	if !ok {
		return
	}
	h.mutateThreads(c, "delete", ids)
}

func (h *ThreadHandler) tutorThreadID(c *gin.Context) (int, bool) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return 0, false
	}
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return 0, false
	}
	return threadID, true
}

func (h *ThreadHandler) tutorThreadIDs(c *gin.Context) ([]int, bool) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return nil, false
	}
	var req struct {
		ThreadIDs []int `json:"thread_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ThreadIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thread_ids required"})
		return nil, false
	}
	return req.ThreadIDs, true
}

// mutateThreads archives or deletes a set of threads. Participant sets are
// collected before the mutation so deletes can still be fanned out.
func (h *ThreadHandler) mutateThreads(c *gin.Context, action string, ids []int) {
	ctx := c.Request.Context()

	participants := map[int][]int{}
	for _, id := range ids {
		p, err := h.threadRepo.ParticipantIDs(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve participants"})
			return
		}
		participants[id] = p
	}

	var affected int
	var err error
	if action == "archive" {
		affected, err = h.threadRepo.ArchiveThreads(ctx, ids)
	} else {
		affected, err = h.threadRepo.DeleteThreads(ctx, ids)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + action + " threads"})
		return
	}

	for _, id := range ids {
		publishChange(ctx, h.bus, h.logger, models.ChangeEvent{
			Table:          models.TableThreads,
			Action:         action,
			ThreadID:       id,
			ParticipantIDs: participants[id],
		})
	}
	h.audit.Emit(ctx, "INFO", fmt.Sprintf("threads %s: requested=%d affected=%d", action, len(ids), affected), requestIDFromContext(c), userIDPtr(c))
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (h *ThreadHandler) publishThreadChange(ctx context.Context, action string, threadID int) {
	participantIDs, err := h.threadRepo.ParticipantIDs(ctx, threadID)
	if err != nil {
		h.logger.Warn("failed to resolve participants for fan-out", zap.Int("thread_id", threadID), zap.Error(err))
		participantIDs = nil
	}
	publishChange(ctx, h.bus, h.logger, models.ChangeEvent{
		Table:          models.TableThreads,
		Action:         action,
		ThreadID:       threadID,
		ParticipantIDs: participantIDs,
	})
}
