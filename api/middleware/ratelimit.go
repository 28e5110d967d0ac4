package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/models"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per identity.
type limiterSet struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idleTime time.Duration
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	return &limiterSet{
		entries:  make(map[string]*limiterEntry),
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		idleTime: time.Hour,
	}
}

func (s *limiterSet) allow(identity string, now time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[identity]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[identity] = e
	}
	e.lastSeen = now
	s.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet) evictIdle(now time.Time) {
	cutoff := now.Add(-s.idleTime)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate. Identities idle for an hour
// are dropped by a background sweep every 5 minutes.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	set := newLimiterSet(cfg)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			set.evictIdle(now)
		}
	}()

	return func(c *gin.Context) {
		// Prefer the API key set by Auth; fall back to the client IP.
		identity := c.ClientIP()
		if key, ok := c.Get(APIKeyContextKey); ok {
			identity = key.(string)
		}

		if !set.allow(identity, time.Now()) {
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "rate limit exceeded, please slow down")
			return
		}
		c.Next()
	}
}
