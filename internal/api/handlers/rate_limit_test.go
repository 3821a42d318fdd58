package handlers

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalRateLimiter_PrunesClosedWindows(t *testing.T) {
	l := newLocalRateLimiter()
	window := 200 * time.Millisecond

	for i := 0; i < 50; i++ {
		allowed, _ := l.allow(fmt.Sprintf("chat:rate:10.0.0.%d", i), 1, window)
		assert.True(t, allowed)
	}
	assert.Equal(t, 50, l.size())

	time.Sleep(2*window + 50*time.Millisecond)

	allowed, _ := l.allow("chat:rate:10.0.1.1", 1, window)
	assert.True(t, allowed)
	assert.Equal(t, 1, l.size())
}

func TestLocalRateLimiter_WindowResets(t *testing.T) {
	l := newLocalRateLimiter()
	window := 100 * time.Millisecond

	allowed, _ := l.allow("k", 1, window)
	assert.True(t, allowed)
	allowed, retryAfter := l.allow("k", 1, window)
	assert.False(t, allowed)
	assert.LessOrEqual(t, retryAfter, window)

	time.Sleep(window + 20*time.Millisecond)
	allowed, _ = l.allow("k", 1, window)
	assert.True(t, allowed)
}

func TestClientIP_IgnoresForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:4242"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Real-IP", "198.51.100.2")

	assert.Equal(t, "203.0.113.7", clientIP(req))
}
