package ratelimit

import (
	"context"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/repository"
	"github.com/rs/zerolog/log"
)

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
	KeyName   string
}

// RateLimiter enforces per-key fixed windows stored in Postgres
type RateLimiter struct {
	ingestKeyRepository repository.IngestKeyRepository
	now                 func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(ingestKeyRepository repository.IngestKeyRepository) *RateLimiter {
	return &RateLimiter{
		ingestKeyRepository: ingestKeyRepository,
		now:                 time.Now,
	}
}

// CheckRateLimit counts one request against the key's current window.
// An unknown or revoked key yields a result with Limit 0.
func (rateLimiter *RateLimiter) CheckRateLimit(ctx context.Context, plainKey string) (*RateLimitResult, error) {
	keyHash := repository.HashIngestKey(plainKey)

	ingestKey, err := rateLimiter.ingestKeyRepository.GetByKeyHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}

	currentTime := rateLimiter.now()
	if ingestKey == nil {
		return &RateLimitResult{ResetTime: currentTime}, nil
	}

	windowDuration := time.Duration(ingestKey.RateWindowSeconds) * time.Second
	windowStart := calculateWindowStart(currentTime, windowDuration)
	resetTime := windowStart.Add(windowDuration)

	requestCount, err := rateLimiter.ingestKeyRepository.IncrementRequestCount(ctx, ingestKey.ID, windowStart)
	if err != nil {
		return nil, err
	}

	allowed := requestCount <= ingestKey.RateLimit
	remaining := max(ingestKey.RateLimit-requestCount, 0)

	// Usage bookkeeping never blocks ingestion
	if allowed {
		if err := rateLimiter.ingestKeyRepository.Touch(ctx, ingestKey.ID); err != nil {
			log.Warn().Err(err).Str("key_id", ingestKey.ID.String()).Msg("Failed to record ingest key usage")
		}
	}

	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     ingestKey.RateLimit,
		Remaining: remaining,
		ResetTime: resetTime,
		KeyName:   ingestKey.Name,
	}, nil
}

// calculateWindowStart returns the start of the fixed window containing
// currentTime. Windows are aligned to multiples of their duration.
func calculateWindowStart(currentTime time.Time, windowDuration time.Duration) time.Time {
	windowSeconds := int64(windowDuration.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	currentUnix := currentTime.Unix()
	windowStartUnix := (currentUnix / windowSeconds) * windowSeconds
	return time.Unix(windowStartUnix, 0).UTC()
}
