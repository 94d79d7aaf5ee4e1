package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhub/internal/billing"
	"tutorhub/internal/models"
	"tutorhub/internal/observability"
	"tutorhub/internal/realtime"
	"tutorhub/internal/repositories"
	"tutorhub/internal/telemetry"
)

// BillingHandler serves the lesson billing classifier and batch invoice
// generation. All endpoints are tutor-only and reject other roles before
// any repository call.
type BillingHandler struct {
	lessonRepo repositories.LessonRepository
	bus        realtime.Bus
	audit      *telemetry.AuditEmitter
	logger     *zap.Logger
	now        func() time.Time
}

// NewBillingHandler builds a BillingHandler.
func NewBillingHandler(lessonRepo repositories.LessonRepository, bus realtime.Bus, audit *telemetry.AuditEmitter, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		lessonRepo: lessonRepo,
		bus:        bus,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// GetSummary classifies the tutor's lessons for a billing period into the
// requested bucket, grouped per family, with grand totals. The collected
// bucket additionally merges prepaid packages into combined totals.
// Defaults to the current calendar month when no period is given.
func (h *BillingHandler) GetSummary(c *gin.Context) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return
	}
	tutorID := c.GetInt("userID")

	bucket, err := billing.ParseBucket(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}

	from, to, err := h.parsePeriod(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
		return
	}

	families, err := h.lessonRepo.ListFamilyLessons(c.Request.Context(), tutorID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lessons"})
		return
	}

	var prepaid []models.PrepaidPackage
	if bucket == billing.BucketCollected {
		parentIDs := make([]int, 0, len(families))
		for _, f := range families {
			parentIDs = append(parentIDs, f.ParentID)
		}
		prepaid, err = h.lessonRepo.ListPrepaidPackages(c.Request.Context(), parentIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prepaid packages"})
			return
		}
	}

	summaries := billing.Classify(bucket, families, prepaid)
	c.JSON(http.StatusOK, gin.H{
		"filter":   bucket,
		"from":     from,
		"to":       to,
		"families": summaries,
		"totals":   billing.GrandTotals(summaries),
	})
}

// GenerateInvoice transitions the selected ready-to-bill lessons of one
// family to invoiced. Zero selected lessons is rejected locally, before any
// repository call. The affected count may be less than requested when some
// lessons moved on in the meantime; that is not an error.
func (h *BillingHandler) GenerateInvoice(c *gin.Context) {
	if !isTutor(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutor role required"})
		return
	}
	tutorID := c.GetInt("userID")

	var req struct {
		ParentID  int   `json:"parent_id" binding:"required"`
		LessonIDs []int `json:"lesson_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.LessonIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least one lesson to invoice"})
		return
	}

	affected, err := h.lessonRepo.MarkLessonsInvoiced(c.Request.Context(), tutorID, req.ParentID, req.LessonIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate invoice"})
		return
	}

	publishChange(c.Request.Context(), h.bus, h.logger, models.ChangeEvent{
		Table:   models.TableLessons,
		Action:  "update",
		TutorID: tutorID,
	})
	observability.IncInvoiceGenerated()
	h.audit.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("invoice generated: parent=%d requested=%d affected=%d", req.ParentID, len(req.LessonIDs), affected),
		requestIDFromContext(c), userIDPtr(c))

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (h *BillingHandler) parsePeriod(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := h.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if fromRaw != "" {
		parsed, err := parseDay(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toRaw != "" {
		parsed, err := parseDay(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
