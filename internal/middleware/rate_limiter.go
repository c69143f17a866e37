package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"rentalhub/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

type window struct {
	count int
	ends  time.Time
}

// fixedWindow counts requests per client IP in fixed windows. Expired
// entries are purged lazily so idle IPs do not accumulate.
type fixedWindow struct {
	mu        sync.Mutex
	limit     int
	size      time.Duration
	entries   map[string]*window
	lastPurge time.Time
	now       func() time.Time
}

func newFixedWindow(limit int, size time.Duration) *fixedWindow {
	return &fixedWindow{
		limit:   limit,
		size:    size,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// allow records one hit for key and reports whether it is within the limit,
// plus the time the current window closes.
func (f *fixedWindow) allow(key string) (bool, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if now.Sub(f.lastPurge) >= purgeInterval {
		f.purge(now)
	}

	w, ok := f.entries[key]
	if !ok || now.After(w.ends) {
		w = &window{ends: now.Add(f.size)}
		f.entries[key] = w
	}
	w.count++
	return w.count <= f.limit, w.ends
}

func (f *fixedWindow) purge(now time.Time) {
	purged := 0
	for k, w := range f.entries {
		if now.After(w.ends) {
			delete(f.entries, k)
			purged++
		}
	}
	f.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(f.entries)).Msg("rate limiter entries purged")
	}
}

func (f *fixedWindow) middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, ends := f.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(ends).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newFixedWindow(20, time.Minute).middleware("too many login attempts, try again in a minute")
}

// RateLimiter is the general per-IP API limiter.
func RateLimiter(limit int, size time.Duration) gin.HandlerFunc {
	return newFixedWindow(limit, size).middleware("too many requests, slow down")
}
