package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/clock"
)

// Config holds token bucket configuration
type Config struct {
	// Capacity is the bucket size (burst allowance)
	Capacity int
	// RefillPerSecond is the token refill rate
	RefillPerSecond float64
	// EntryTTL drops keys idle longer than this
	EntryTTL time.Duration
	// CleanupInterval is how often stale entries are evicted
	CleanupInterval time.Duration
	// Clock is injectable for tests; nil uses the system clock
	Clock clock.Clock
}

// DefaultConfig returns the default scan-throttle configuration
func DefaultConfig() Config {
	return Config{
		Capacity:        5,
		RefillPerSecond: 1,
		EntryTTL:        5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// entry tracks bucket state for one key
type entry struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// Limiter implements an in-memory token bucket keyed by caller-supplied
// strings. State is process-local; cross-instance correctness rests on the
// DB-enforced min-interval check, not on this throttle.
type Limiter struct {
	config  Config
	clock   clock.Clock
	entries sync.Map
	stop    chan struct{}

	totalAllowed  uint64
	totalRejected uint64
}

// NewLimiter creates a limiter and starts its eviction goroutine
func NewLimiter(cfg Config) *Limiter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 5
	}
	if cfg.RefillPerSecond <= 0 {
		cfg.RefillPerSecond = 1
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	ck := cfg.Clock
	if ck == nil {
		ck = clock.New()
	}
	l := &Limiter{
		config: cfg,
		clock:  ck,
		stop:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow consumes one token for the key, reporting whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()

	v, _ := l.entries.LoadOrStore(key, &entry{
		tokens:     float64(l.config.Capacity),
		lastUpdate: now,
	})
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	if elapsed > 0 {
		e.tokens = minFloat(float64(l.config.Capacity), e.tokens+elapsed*l.config.RefillPerSecond)
		e.lastUpdate = now
	}

	if e.tokens >= 1 {
		e.tokens--
		atomic.AddUint64(&l.totalAllowed, 1)
		return true
	}

	atomic.AddUint64(&l.totalRejected, 1)
	return false
}

// AllowAll consumes a token for every key, reporting whether all passed.
// Used to throttle on both the ticket/device pair and the operator.
func (l *Limiter) AllowAll(keys ...string) bool {
	allowed := true
	for _, k := range keys {
		if k == "" {
			continue
		}
		if !l.Allow(k) {
			allowed = false
		}
	}
	return allowed
}

// Stats returns the total allowed and rejected counts
func (l *Limiter) Stats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&l.totalAllowed), atomic.LoadUint64(&l.totalRejected)
}

// Stop terminates the eviction goroutine
func (l *Limiter) Stop() {
	close(l.stop)
}

// cleanup periodically removes keys idle longer than EntryTTL
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := l.clock.Now().Add(-l.config.EntryTTL)
			l.entries.Range(func(key, value interface{}) bool {
				e := value.(*entry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					l.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-l.stop:
			return
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
