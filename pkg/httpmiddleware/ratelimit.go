package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-key sliding window limiter.
type RateLimitConfig struct {
	// Max requests allowed per Window.
	Max int
	// Window is the sliding window size.
	Window time.Duration
	// KeyFunc derives the limit key from a request. Defaults to client IP.
	KeyFunc func(*http.Request) string
}

// bucket counts requests in the current fixed window and remembers the
// previous one. The sliding estimate blends the two by overlap.
type bucket struct {
	prev  int
	curr  int
	start time.Time
}

type limiter struct {
	max    int
	window time.Duration
	keyFor func(*http.Request) string
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	keyFor := cfg.KeyFunc
	if keyFor == nil {
		keyFor = clientIP
	}
	return &limiter{
		max:     cfg.Max,
		window:  cfg.Window,
		keyFor:  keyFor,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// take consumes one slot for key if available. It reports the remaining
// budget, when the current window resets, and whether the request may pass.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, found := l.buckets[key]
	if !found {
		b = &bucket{start: now}
		l.buckets[key] = b
	}

	switch elapsed := now.Sub(b.start); {
	case elapsed >= 2*l.window:
		b.prev, b.curr = 0, 0
		b.start = now
	case elapsed >= l.window:
		b.prev, b.curr = b.curr, 0
		b.start = b.start.Add(l.window)
	}

	// Weight the previous window by how much of it still overlaps the
	// trailing window ending now.
	frac := 1 - float64(now.Sub(b.start))/float64(l.window)
	if frac < 0 {
		frac = 0
	}
	used := float64(b.prev)*frac + float64(b.curr)
	reset = b.start.Add(l.window)

	if used >= float64(l.max) {
		return 0, reset, false
	}

	b.curr++
	remaining = int(float64(l.max) - used - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, reset, true
}

// purge drops buckets idle for two full windows.
func (l *limiter) purge() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.window {
			delete(l.buckets, key)
		}
	}
}

func (l *limiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.take(l.keyFor(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				wait := math.Ceil(time.Until(reset).Seconds())
				if wait < 0 {
					wait = 0
				}
				h.Set("Retry-After", strconv.Itoa(int(wait)))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// RateLimit enforces a per-key sliding window limit. Denied requests get a
// 429 with a JSON body; every response carries X-RateLimit-* headers.
// Stale buckets are never evicted; prefer RateLimitWithCleanup in servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a background sweep that evicts idle
// buckets until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * l.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.purge()
			}
		}
	}()
	return l.middleware()
}

// clientIP resolves the caller address behind proxies: first hop of
// X-Forwarded-For, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
