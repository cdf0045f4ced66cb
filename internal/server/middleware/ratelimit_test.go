// file: internal/server/middleware/ratelimit_test.go
// version: 2.0.0
// guid: b31f3de0-b0bc-4cbf-8448-7309df38f7c0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewIPRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(0, 0)
	assert.Equal(t, 1, limiter.requestsPerMin)
	assert.Equal(t, 1, limiter.burst)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewIPRateLimiterWithClock(1, 1, clock).Middleware())
	router.POST("/api/v1/upload", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
		req.RemoteAddr = addr
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1234").Code)

	limited := send("192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "rate limit exceeded")

	// Different IP should have its own bucket.
	assert.Equal(t, http.StatusOK, send("198.51.100.3:4321").Code)

	// One request per minute refills after a minute.
	clock.Advance(time.Minute)
	assert.Equal(t, http.StatusOK, send("192.0.2.1:1234").Code)
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	limiter := NewIPRateLimiterWithClock(60, 1, clock)
	assert.True(t, limiter.allow("a"))
	assert.True(t, limiter.allow("b"))
	assert.Equal(t, 2, limiter.Len())

	clock.Advance(16 * time.Minute)
	assert.True(t, limiter.allow("c"))
	assert.Equal(t, 1, limiter.Len())
}
