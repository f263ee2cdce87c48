package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterRefill(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Unix(1000, 0)
	rl := NewRateLimiter(ctx, 60, 2)
	rl.now = func() time.Time { return now }

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := rl.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)

	// Other clients have their own bucket.
	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimiterSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Unix(1000, 0)
	rl := NewRateLimiter(ctx, 60, 1)
	rl.now = func() time.Time { return now }
	rl.allow("10.0.0.1")

	rl.sweep(now.Add(time.Minute))
	assert.Empty(t, rl.buckets)
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, 1)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
