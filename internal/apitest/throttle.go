package apitest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// throttle is a per-IP token bucket in front of the login routes, answering
// the way the platform's anonymous throttle does.
type throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

func newThrottle(rate int, interval time.Duration, now func() time.Time) *throttle {
	return &throttle{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      now,
	}
}

// middleware rejects requests beyond rate per interval with 429. A rate of
// zero disables throttling.
func (t *throttle) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.rate <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		now := t.now()

		t.mu.Lock()
		t.cleanupLocked(now)
		v, exists := t.visitors[ip]
		if !exists {
			v = &visitor{tokens: t.rate, lastSeen: now}
			t.visitors[ip] = v
		}

		// Refill whole intervals only.
		if periods := int(now.Sub(v.lastSeen) / t.interval); periods > 0 {
			v.tokens += periods * t.rate
			if v.tokens > t.rate {
				v.tokens = t.rate
			}
			v.lastSeen = now
		}

		if v.tokens <= 0 {
			wait := t.interval - now.Sub(v.lastSeen)
			t.mu.Unlock()
			secs := int(wait.Round(time.Second) / time.Second)
			c.Header("Retry-After", fmt.Sprint(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": fmt.Sprintf("Request was throttled. Expected available in %d seconds.", secs),
			})
			return
		}

		v.tokens--
		t.mu.Unlock()
		c.Next()
	}
}

// cleanupLocked forgets visitors idle for three intervals.
func (t *throttle) cleanupLocked(now time.Time) {
	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > 3*t.interval {
			delete(t.visitors, ip)
		}
	}
}
