package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
)

// contextKey is the type of values this package stores in request contexts
type contextKey string

const (
	tokenIDContextKey   contextKey = "tokenID"
	requestIDContextKey contextKey = "requestID"
	ingestKeyContextKey contextKey = "ingestKeyName"
)

// TokenValidator validates admin access tokens
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (string, error)
}

// AdminAuthMiddleware creates middleware that requires a valid admin bearer token
func AdminAuthMiddleware(tokenValidator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			if authHeader == "" {
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeUnauthorized,
					"Authorization header is required",
					http.StatusUnauthorized,
				))
				return
			}

			// Check Bearer token format
			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeUnauthorized,
					"Invalid authorization format. Use: Bearer <token>",
					http.StatusUnauthorized,
				))
				return
			}

			tokenID, err := tokenValidator.ValidateAccessToken(tokenString)
			if err != nil {
				apierrors.WriteError(responseWriter, apierrors.NewAPIError(
					apierrors.ErrCodeInvalidToken,
					"Invalid or expired access token",
					http.StatusUnauthorized,
				))
				return
			}

			ctx := context.WithValue(request.Context(), tokenIDContextKey, tokenID)
			next.ServeHTTP(responseWriter, request.WithContext(ctx))
		})
	}
}

// TokenIDFromContext returns the admin token id stored by AdminAuthMiddleware
func TokenIDFromContext(ctx context.Context) string {
	tokenID, _ := ctx.Value(tokenIDContextKey).(string)
	return tokenID
}

// RequestIDFromContext returns the request id stored by LoggingMiddleware
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// IngestKeyNameFromContext returns the name of the ingest key that authorized the request
func IngestKeyNameFromContext(ctx context.Context) string {
	keyName, _ := ctx.Value(ingestKeyContextKey).(string)
	return keyName
}
