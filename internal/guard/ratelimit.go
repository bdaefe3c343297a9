package guard

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Decision is the outcome of one admission check. RetryAfter is only set
// when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// LimiterInterface abstracts bounded-rate admission control keyed by an
// opaque string (site:device:endpoint). The in-memory implementation below
// is the single-instance default; a shared atomic-increment store can back
// the same contract for multi-instance deployments.
type LimiterInterface interface {
	Consume(key string, limit int, window time.Duration) Decision
	Sweep()
	Len() int
	Totals() (allowed, rejected int64)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter counts requests in fixed wall-clock windows. Approximate
// on purpose: bursts at window boundaries can reach 2x the nominal rate,
// which is acceptable for abuse mitigation.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	allowed  atomic.Int64
	rejected atomic.Int64
}

func NewMemoryLimiter() LimiterInterface {
	return &MemoryLimiter{buckets: make(map[string]*bucket)}
}

func (l *MemoryLimiter) Consume(key string, limit int, window time.Duration) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.resetAt.Before(now) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		l.allowed.Inc()
		return Decision{Allowed: true}
	}

	if b.count < limit {
		b.count++
		l.allowed.Inc()
		return Decision{Allowed: true}
	}

	l.rejected.Inc()
	return Decision{Allowed: false, RetryAfter: b.resetAt.Sub(now)}
}

// Sweep drops expired buckets so the map does not grow unbounded between
// windows. Called periodically by the scheduler.
func (l *MemoryLimiter) Sweep() {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if b.resetAt.Before(now) {
			delete(l.buckets, key)
		}
	}
}

func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *MemoryLimiter) Totals() (allowed, rejected int64) {
	return l.allowed.Load(), l.rejected.Load()
}
