package service

import (
	"sync"

	"golang.org/x/time/rate"
)

// keyedLimiter throttles credential-guessing traffic per subject key
// (normalized email or actor ID).
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newKeyedLimiter(attemptsPerMinute, burst int) *keyedLimiter {
	if attemptsPerMinute <= 0 {
		attemptsPerMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &keyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(attemptsPerMinute) / 60.0),
		burst:    burst,
	}
}

// Allow reports whether another attempt for the key fits the budget.
func (l *keyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
