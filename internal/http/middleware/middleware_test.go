package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Discard()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(tokens *service.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(tokens))
	r.GET("/me", func(c *gin.Context) {
		identity, _ := middleware.CurrentIdentity(c)
		response.Success(c, gin.H{"id": identity.UserID, "role": identity.Role})
	})
	r.GET("/admin", middleware.RequireRole("admin"), func(c *gin.Context) {
		response.Message(c, "ok")
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenManager("test-secret", time.Minute)
	r := newAuthRouter(tokens)
	userID := uuid.New()
	token, err := tokens.Issue(service.Identity{UserID: userID, Role: "user", Name: "Анна"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "UNAUTHORIZED", body.Errors[0].Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := tokens.Issue(service.Identity{UserID: uuid.New(), Role: "admin"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUUIDValidator(t *testing.T) {
	r := gin.New()
	r.GET("/transactions/:id", middleware.UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "id", body.Errors[0].Field)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/join", middleware.RateLimitMiddleware(2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/join", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Metrics())
	r.GET("/transactions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := seriesCount(t, "http_requests_total")
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/"+uuid.NewString(), nil))
	}
	// три разных id дают одну серию
	assert.Equal(t, before+1, seriesCount(t, "http_requests_total"))
}

func TestErrorHandlerMasksInternalErrors(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func seriesCount(t *testing.T, name string) int {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}
