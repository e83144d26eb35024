package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter(store *LimiterStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id, err := strconv.Atoi(c.GetHeader("X-Test-UserID")); err == nil {
			c.Set("userID", uint(id))
		}
		c.Next()
	})
	r.Use(RateLimit(store))
	r.POST("/book", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/book", nil)
	if userID != "" {
		req.Header.Set("X-Test-UserID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_PerUserBucket(t *testing.T) {
	r := setupRouter(NewLimiterStore(0.001, 2, time.Minute))

	assert.Equal(t, http.StatusOK, post(r, "1").Code)
	assert.Equal(t, http.StatusOK, post(r, "1").Code)

	w := post(r, "1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post(r, "2").Code, "another user has its own bucket")
}

func TestRateLimit_FallsBackToClientIP(t *testing.T) {
	r := setupRouter(NewLimiterStore(0.001, 1, time.Minute))

	assert.Equal(t, http.StatusOK, post(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "").Code)
}

func TestLimiterStore_Cleanup(t *testing.T) {
	store := NewLimiterStore(1, 1, -time.Second)
	store.Get("user:1")
	store.Get("user:2")
	assert.Equal(t, 2, store.Len())

	store.Cleanup()
	assert.Equal(t, 0, store.Len())
}
