package handlers

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
)

// rateLimiter is a fixed-window counter per key. It counts in the shared
// cache when one is configured and falls back to process memory when the
// cache is absent or failing.
type rateLimiter struct {
	cache  providers.CacheProvider
	local  *localRateLimiter
	limit  int
	window time.Duration
}

func newRateLimiter(cache providers.CacheProvider, limit int, window time.Duration) *rateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		cache:  cache,
		local:  newLocalRateLimiter(),
		limit:  limit,
		window: window,
	}
}

// allow reports whether the request fits the budget and, if not, how long
// until the window resets. A non-positive limit disables limiting.
func (l *rateLimiter) allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	if l.cache != nil {
		count, ttl, err := l.cache.Increment(ctx, key, l.window)
		if err == nil {
			return count <= int64(l.limit), ttl
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("rate limit cache unavailable, using local counter")
	}
	return l.local.allow(key, l.limit, l.window)
}

type localRateLimiter struct {
	mu        sync.Mutex
	states    map[string]*localRateState
	nextSweep time.Time
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(window)
	}

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{count: 0, resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := time.Until(state.resetAt)
		if retryAfter < 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, window
}

// sweep drops windows that have already closed. Callers hold mu.
func (l *localRateLimiter) sweep(now time.Time) {
	for key, state := range l.states {
		if now.After(state.resetAt) {
			delete(l.states, key)
		}
	}
}

// size reports how many clients are tracked
func (l *localRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

// clientIP is the connection address. Proxy headers are applied upstream by
// the router only when they are trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
