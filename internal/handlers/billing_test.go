package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutorhub/internal/mocks"
	"tutorhub/internal/models"
)

func setupBillingRouter(handler *BillingHandler, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("role", role)
		c.Next()
	})
	r.GET("/billing/summary", handler.GetSummary)
	r.POST("/billing/invoices", handler.GenerateInvoice)
	return r
}

func newBillingHandler(lessonRepo *mocks.LessonRepositoryMock) *BillingHandler {
	return NewBillingHandler(lessonRepo, nil, nil, zap.NewNop())
}

func TestGetSummaryNonTutorForbidden(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleParent)

	req := httptest.NewRequest(http.MethodGet, "/billing/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	lessonRepo.AssertNotCalled(t, "ListFamilyLessons", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSummaryInvalidFilter(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	req := httptest.NewRequest(http.MethodGet, "/billing/summary?filter=overdue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	lessonRepo.AssertNotCalled(t, "ListFamilyLessons", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSummaryDefaultsToReadyToBill(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	handler.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	router := setupBillingRouter(handler, models.RoleTutor)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	lessonRepo.On("ListFamilyLessons", mock.Anything, 1, from, to).Return([]models.FamilyLessons{
		{ParentID: 2, ParentName: "Ava", Lessons: []models.Lesson{
			{ID: 1, Status: models.LessonCompleted, PaymentStatus: models.PaymentNone, AmountCents: 4000},
			{ID: 2, Status: models.LessonCompleted, PaymentStatus: models.PaymentInvoiced, AmountCents: 4000},
		}},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/billing/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Filter   string `json:"filter"`
		Families []struct {
			ParentID    int   `json:"parent_id"`
			LessonCount int   `json:"lesson_count"`
			AmountCents int64 `json:"amount_cents"`
		} `json:"families"`
		Totals struct {
			Families    int   `json:"families"`
			AmountCents int64 `json:"amount_cents"`
		} `json:"totals"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ready_to_bill", resp.Filter)
	require.Len(t, resp.Families, 1)
	assert.Equal(t, 1, resp.Families[0].LessonCount)
	assert.Equal(t, int64(4000), resp.Families[0].AmountCents)
	assert.Equal(t, 1, resp.Totals.Families)
	assert.Equal(t, int64(4000), resp.Totals.AmountCents)
	lessonRepo.AssertExpectations(t)
	// Prepaid packages are only consulted for the collected bucket.
	lessonRepo.AssertNotCalled(t, "ListPrepaidPackages", mock.Anything, mock.Anything)
}

func TestGetSummaryCollectedMergesPrepaid(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	lessonRepo.On("ListFamilyLessons", mock.Anything, 1, mock.Anything, mock.Anything).Return([]models.FamilyLessons{
		{ParentID: 2, ParentName: "Ava", Lessons: []models.Lesson{
			{ID: 1, Status: models.LessonCompleted, PaymentStatus: models.PaymentPaid, AmountCents: 4000},
		}},
	}, nil).Once()
	lessonRepo.On("ListPrepaidPackages", mock.Anything, []int{2}).Return([]models.PrepaidPackage{
		{ID: 7, ParentID: 2, TotalSessions: 10, AmountCents: 20000},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/billing/summary?filter=collected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Families []struct {
			CombinedCount       int    `json:"combined_count"`
			CombinedAmountCents int64  `json:"combined_amount_cents"`
			CombinedLabel       string `json:"combined_label"`
			Unit                string `json:"unit"`
		} `json:"families"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Families, 1)
	assert.Equal(t, 2, resp.Families[0].CombinedCount)
	assert.Equal(t, int64(24000), resp.Families[0].CombinedAmountCents)
	assert.Equal(t, "1+1", resp.Families[0].CombinedLabel)
	assert.Equal(t, "items", resp.Families[0].Unit)
	lessonRepo.AssertExpectations(t)
}

func TestGetSummaryExplicitPeriod(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	lessonRepo.On("ListFamilyLessons", mock.Anything, 1, from, to).Return([]models.FamilyLessons{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/billing/summary?from=2025-01-01&to=2025-02-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	lessonRepo.AssertExpectations(t)
}

func TestGenerateInvoiceEmptySelectionRejectedLocally(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	body := bytes.NewBufferString(`{"parent_id":2,"lesson_ids":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/invoices", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	lessonRepo.AssertNotCalled(t, "MarkLessonsInvoiced", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateInvoiceNonTutorForbidden(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleParent)

	body := bytes.NewBufferString(`{"parent_id":2,"lesson_ids":[1]}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/invoices", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	lessonRepo.AssertNotCalled(t, "MarkLessonsInvoiced", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateInvoiceReturnsAffected(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	lessonRepo.On("MarkLessonsInvoiced", mock.Anything, 1, 2, []int{5, 6, 7}).Return(2, nil).Once()

	body := bytes.NewBufferString(`{"parent_id":2,"lesson_ids":[5,6,7]}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/invoices", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Affected int `json:"affected"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Affected)
	lessonRepo.AssertExpectations(t)
}

func TestGenerateInvoicePublishesLessonChange(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	bus := new(mocks.BusMock)
	handler := NewBillingHandler(lessonRepo, bus, nil, zap.NewNop())
	router := setupBillingRouter(handler, models.RoleTutor)

	lessonRepo.On("MarkLessonsInvoiced", mock.Anything, 1, 2, []int{5}).Return(1, nil).Once()
	bus.On("PublishChange", mock.Anything, models.ChangeEvent{
		Table:   models.TableLessons,
		Action:  "update",
		TutorID: 1,
	}).Return(nil).Once()

	body := bytes.NewBufferString(`{"parent_id":2,"lesson_ids":[5]}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/invoices", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	bus.AssertExpectations(t)
	lessonRepo.AssertExpectations(t)
}

func TestGenerateInvoiceRepoError(t *testing.T) {
	lessonRepo := new(mocks.LessonRepositoryMock)
	handler := newBillingHandler(lessonRepo)
	router := setupBillingRouter(handler, models.RoleTutor)

	lessonRepo.On("MarkLessonsInvoiced", mock.Anything, 1, 2, []int{5}).Return(0, assert.AnError).Once()

	body := bytes.NewBufferString(`{"parent_id":2,"lesson_ids":[5]}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/invoices", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	lessonRepo.AssertExpectations(t)
}
