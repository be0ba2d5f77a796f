package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 30 * time.Minute

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// sessionLimiter hands out one token bucket per chat session.
type sessionLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*limiterEntry
	lastGC  time.Time
}

// newSessionLimiter returns nil when perMinute is not positive.
func newSessionLimiter(perMinute int) *sessionLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &sessionLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		lastGC:  time.Now(),
	}
}

func (l *sessionLimiter) Allow(sid string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastGC) > limiterIdle {
		for k, e := range l.entries {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.entries, k)
			}
		}
		l.lastGC = now
	}
	e, ok := l.entries[sid]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[sid] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}
