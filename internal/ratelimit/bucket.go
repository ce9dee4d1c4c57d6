package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused client bucket is kept
const idleLimiterTTL = time.Hour

// sweepInterval bounds how often idle buckets are removed
const sweepInterval = 5 * time.Minute

// TokenBucket is an in-process per-client token bucket. Idle buckets are
// removed lazily during Allow, so no background goroutine is needed.
type TokenBucket struct {
	mutex     sync.Mutex
	limiters  map[string]*bucketEntry
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// bucketEntry wraps a limiter with its last access time
type bucketEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewTokenBucket creates a token bucket refilling ratePerSecond tokens per
// second up to burst tokens per client
func NewTokenBucket(ratePerSecond float64, burst int) *TokenBucket {
	return &TokenBucket{
		limiters:  make(map[string]*bucketEntry),
		rate:      rate.Limit(ratePerSecond),
		burst:     burst,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// Allow reports whether client may make a request now and consumes a token
func (tokenBucket *TokenBucket) Allow(client string) bool {
	tokenBucket.mutex.Lock()
	defer tokenBucket.mutex.Unlock()

	currentTime := tokenBucket.now()
	if currentTime.Sub(tokenBucket.lastSweep) >= sweepInterval {
		tokenBucket.sweep(currentTime)
	}

	entry, exists := tokenBucket.limiters[client]
	if !exists {
		entry = &bucketEntry{limiter: rate.NewLimiter(tokenBucket.rate, tokenBucket.burst)}
		tokenBucket.limiters[client] = entry
	}
	entry.lastAccess = currentTime

	return entry.limiter.AllowN(currentTime, 1)
}

// Clients returns the number of tracked clients
func (tokenBucket *TokenBucket) Clients() int {
	tokenBucket.mutex.Lock()
	defer tokenBucket.mutex.Unlock()
	return len(tokenBucket.limiters)
}

// sweep removes buckets idle for longer than idleLimiterTTL. Caller holds the mutex.
func (tokenBucket *TokenBucket) sweep(currentTime time.Time) {
	for client, entry := range tokenBucket.limiters {
		if currentTime.Sub(entry.lastAccess) > idleLimiterTTL {
			delete(tokenBucket.limiters, client)
		}
	}
	tokenBucket.lastSweep = currentTime
}
