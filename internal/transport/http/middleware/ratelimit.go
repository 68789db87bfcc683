package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "change-request-tracker/internal/transport/http/response"
)

// RateLimit is a global token bucket.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooMany, "too many requests"))
	}
}

// bucketIdle is how long an IP may stay quiet before its bucket is dropped.
const bucketIdle = 10 * time.Minute

// RateLimitPerIP keeps one bucket per client IP. Used on login to slow
// password guessing.
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	b := newIPBuckets(rps, burst, bucketIdle, time.Now)
	return func(c *gin.Context) {
		if b.allow(c.ClientIP()) {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooMany, "too many requests"))
	}
}

type ipBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ipBuckets evicts buckets idle for longer than idle, sweeping at most once
// per idle period.
type ipBuckets struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	m         map[string]*ipBucket
}

func newIPBuckets(rps rate.Limit, burst int, idle time.Duration, now func() time.Time) *ipBuckets {
	return &ipBuckets{rps: rps, burst: burst, idle: idle, now: now, lastSweep: now(), m: map[string]*ipBucket{}}
}

func (b *ipBuckets) allow(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if now.Sub(b.lastSweep) >= b.idle {
		for k, v := range b.m {
			if now.Sub(v.lastSeen) >= b.idle {
				delete(b.m, k)
			}
		}
		b.lastSweep = now
	}
	e, ok := b.m[ip]
	if !ok {
		e = &ipBucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.m[ip] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func (b *ipBuckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}
