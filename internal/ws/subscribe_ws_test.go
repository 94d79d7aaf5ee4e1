package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutorhub/internal/models"
	"tutorhub/internal/repositories"
)

type fakeThreadRepo struct {
	repositories.ThreadRepository
	member    bool
	memberErr error
}

func (f *fakeThreadRepo) IsParticipant(ctx context.Context, threadID int, userID int) (bool, error) {
	return f.member, f.memberErr
}

func setupSubscribeRouter(repo repositories.ThreadRepository, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("role", role)
		c.Next()
	})
	handler := NewSubscribeHandler(NewHub(zap.NewNop()), repo, zap.NewNop())
	r.GET("/ws", handler.Handle)
	return r
}

func TestSubscribeThreadScopeMembershipCheckFailure(t *testing.T) {
	router := setupSubscribeRouter(&fakeThreadRepo{memberErr: errors.New("db timeout")}, models.RoleParent)

	req := httptest.NewRequest(http.MethodGet, "/ws?scope=thread&thread_id=9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// A store failure is retryable; it must not read as an authorization verdict.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubscribeThreadScopeNonMemberForbidden(t *testing.T) {
	router := setupSubscribeRouter(&fakeThreadRepo{member: false}, models.RoleParent)

	req := httptest.NewRequest(http.MethodGet, "/ws?scope=thread&thread_id=9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubscribeBillingScopeNonTutorForbidden(t *testing.T) {
	router := setupSubscribeRouter(&fakeThreadRepo{}, models.RoleParent)

	req := httptest.NewRequest(http.MethodGet, "/ws?scope=billing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubscribeUnknownScopeRejected(t *testing.T) {
	router := setupSubscribeRouter(&fakeThreadRepo{}, models.RoleParent)

	req := httptest.NewRequest(http.MethodGet, "/ws?scope=everything", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
