package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func resetBuckets(t *testing.T, now *time.Time) {
	t.Helper()
	rlMu.Lock()
	buckets = map[string]*bucket{}
	rlMu.Unlock()
	rlNow = func() time.Time { return *now }
	SetRateLimitConfig(10*time.Second, 2)
	t.Cleanup(func() {
		rlNow = time.Now
		SetRateLimitConfig(10*time.Second, 5)
	})
}

func limitedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, uint(7))
		c.Next()
	})
	r.POST("/chat", RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))
	return w.Code
}

func TestRateLimitRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	resetBuckets(t, &now)
	r := limitedRouter()

	assert.Equal(t, http.StatusOK, post(r))
	assert.Equal(t, http.StatusOK, post(r))
	assert.Equal(t, http.StatusTooManyRequests, post(r))

	now = now.Add(5 * time.Second)
	assert.Equal(t, http.StatusOK, post(r))
	assert.Equal(t, http.StatusTooManyRequests, post(r))
}

func TestPruneBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	resetBuckets(t, &now)
	r := limitedRouter()
	post(r)

	assert.Equal(t, 0, PruneBuckets(time.Minute))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, PruneBuckets(time.Minute))
	assert.Equal(t, http.StatusOK, post(r))
}
