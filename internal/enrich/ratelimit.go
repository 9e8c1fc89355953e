package enrich

import (
	"sync"
	"time"
)

// Limiter caps AI requests per daily window. Zero max means unlimited.
type Limiter struct {
	mu        sync.Mutex
	count     int
	max       int
	resetTime time.Time
}

func NewLimiter(max int) *Limiter {
	return &Limiter{
		max:       max,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// Allow reserves one request slot, rolling the window over when it expires.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().After(l.resetTime) {
		l.count = 0
		l.resetTime = time.Now().Add(24 * time.Hour)
	}

	if l.max > 0 && l.count >= l.max {
		return false
	}
	l.count++
	return true
}

func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
