// Package middleware holds the HTTP middleware chain.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/usgears/storefront/pkg/cache"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/response"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// memoryLimiter is a fixed-window counter per key, used when Redis is absent.
type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func (m *memoryLimiter) allow(key string, max int, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.Sub(m.swept) > time.Minute {
		for k, b := range m.buckets {
			if now.After(b.resetAt) {
				delete(m.buckets, k)
			}
		}
		m.swept = now
	}

	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count <= max
}

// RateLimit allows max requests per window per client IP. The counter lives
// in Redis when configured so limits hold across replicas.
func RateLimit(name string, max int, window time.Duration) func(http.Handler) http.Handler {
	mem := &memoryLimiter{buckets: map[string]*bucket{}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)

			allowed := true
			if cache.Enabled() {
				slot := time.Now().UnixNano() / int64(window)
				n, err := cache.Incr(r.Context(), "ratelimit:"+key+":"+strconv.FormatInt(slot, 10), window)
				if err != nil {
					logger.WithCtx(r.Context()).Warn("rate limit: redis unavailable", "error", err)
					allowed = mem.allow(key, max, window)
				} else {
					allowed = n <= int64(max)
				}
			} else {
				allowed = mem.allow(key, max, window)
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
