package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/metrics"
	"github.com/OPGLOL/opgl-raid-tracker/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// APIKeyHeader carries the ingest key of a mod installation
const APIKeyHeader = "X-API-Key"

// KeyLimiter checks an ingest key against its fixed rate window
type KeyLimiter interface {
	CheckRateLimit(ctx context.Context, plainKey string) (*ratelimit.RateLimitResult, error)
}

// ClientLimiter is an in-process limiter keyed by client identity
type ClientLimiter interface {
	Allow(client string) bool
}

// IngestKeyMiddleware creates middleware that requires a valid ingest key and
// enforces its fixed-window rate limit
func IngestKeyMiddleware(keyLimiter KeyLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			apiKey := request.Header.Get(APIKeyHeader)

			if apiKey == "" {
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeMissingAPIKey,
					"API key is required. Include X-API-Key header in your request.",
					http.StatusUnauthorized,
				))
				return
			}

			rateLimitResult, err := keyLimiter.CheckRateLimit(request.Context(), apiKey)
			if err != nil {
				log.Error().Err(err).Msg("Rate limit check failed")
				apierrors.WriteError(responseWriter, apierrors.InternalError("Rate limit check failed"))
				return
			}

			// Unknown or revoked keys carry no limit
			if rateLimitResult.Limit == 0 {
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeInvalidAPIKey,
					"Invalid or inactive API key.",
					http.StatusUnauthorized,
				))
				return
			}

			responseWriter.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimitResult.Limit))
			responseWriter.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rateLimitResult.Remaining))
			responseWriter.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rateLimitResult.ResetTime.Unix(), 10))

			if !rateLimitResult.Allowed {
				retryAfter := max(rateLimitResult.ResetTime.Unix()-time.Now().Unix(), 1)
				responseWriter.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))

				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeRateLimitExceeded,
					fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
					http.StatusTooManyRequests,
				))
				return
			}

			ctx := context.WithValue(request.Context(), ingestKeyContextKey, rateLimitResult.KeyName)
			next.ServeHTTP(responseWriter, request.WithContext(ctx))
		})
	}
}

// ThrottleMiddleware creates middleware that applies the in-process token
// bucket per client. Clients are identified by their API key when present,
// otherwise by remote address.
func ThrottleMiddleware(clientLimiter ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			if !clientLimiter.Allow(clientIdentity(request)) {
				metrics.IngestThrottled.Inc()
				responseWriter.Header().Set("Retry-After", "1")
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeRateLimitExceeded,
					"Too many requests.",
					http.StatusTooManyRequests,
				))
				return
			}

			next.ServeHTTP(responseWriter, request)
		})
	}
}

// clientIdentity returns the key used to select a client's token bucket
func clientIdentity(request *http.Request) string {
	if apiKey := request.Header.Get(APIKeyHeader); apiKey != "" {
		return "key:" + apiKey
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return "addr:" + request.RemoteAddr
	}
	return "addr:" + host
}
