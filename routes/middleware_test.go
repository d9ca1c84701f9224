package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterThrottlesPerAddress(t *testing.T) {
	limiter := newIPRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d within the burst", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"), "the burst is spent")
	assert.True(t, limiter.Allow("10.0.0.2"), "other addresses have their own limiter")
}

func TestRateLimitMiddlewareAnswers429(t *testing.T) {
	limiter := newIPRateLimiter(1, time.Minute)
	handled := 0
	handler := rateLimit(limiter, func(w http.ResponseWriter, r *http.Request) {
		handled++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/match/request", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
	assert.Equal(t, 1, handled)
}
