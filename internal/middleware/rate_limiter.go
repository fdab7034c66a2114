package middleware

import (
	"net/http"
	"sync"
	"time"

	"barpos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
}

const purgeInterval = 5 * time.Minute

// RateLimiter is a fixed-window limiter per client IP. Expired entries are
// purged every few minutes so IPs that never return don't accumulate.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{entries: make(map[string]*rateEntry), limit: limit, window: window}
	go rl.purgeLoop()
	return rl.handle
}

func (rl *rateLimiter) allow(ip string, now time.Time) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &rateEntry{windowEnd: now.Add(rl.window)}
		rl.entries[ip] = e
	}
	e.count++
	return e.count <= rl.limit, e.windowEnd
}

func (rl *rateLimiter) handle(c *gin.Context) {
	ok, windowEnd := rl.allow(c.ClientIP(), time.Now())
	if !ok {
		c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
		c.AbortWithStatusJSON(http.StatusTooManyRequests,
			apierror.WithCode(apierror.CodeDemasiadasSolicitudes, "Demasiadas solicitudes. Intente nuevamente en un momento."))
		return
	}
	c.Next()
}

func (rl *rateLimiter) purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		purged := 0
		for ip, e := range rl.entries {
			if now.After(e.windowEnd) {
				delete(rl.entries, ip)
				purged++
			}
		}
		rl.mu.Unlock()
		if purged > 0 {
			log.Debug().Int("purged", purged).Msg("rate_limiter: purged expired entries")
		}
	}
}
