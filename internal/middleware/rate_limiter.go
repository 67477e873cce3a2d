package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Sliding window per IP ─────────────────────────────────────────────────────

type ipEntry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter counts requests per client IP in fixed windows that restart on
// the first request after expiry.
type RateLimiter struct {
	limit   int
	window  time.Duration
	message string
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*ipEntry
}

func NewRateLimiter(limit int, window time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		message: message,
		now:     time.Now,
		entries: make(map[string]*ipEntry),
	}
}

// Allow records one hit for ip and reports whether it is within the limit.
func (l *RateLimiter) Allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &ipEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(time.RFC1123))
			c.AbortWithStatusJSON(apierror.ResourceExhausted.HTTPStatus(), apierror.Response(apierror.New(apierror.ResourceExhausted, l.message)))
			return
		}
		c.Next()
	}
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Removes expired entries so IPs that never return do not accumulate.

const purgeInterval = 5 * time.Minute

// StartPurge runs until ctx is cancelled.
func (l *RateLimiter) StartPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.purge(); n > 0 {
					log.Debug().Int("purged", n).Msg("rate limiter entries purged")
				}
			}
		}
	}()
}

func (l *RateLimiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	purged := 0
	for ip, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	return purged
}
