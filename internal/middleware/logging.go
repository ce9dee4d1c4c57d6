package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader is echoed on every response
const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the next handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader records the status code before writing it
func (recorder *statusRecorder) WriteHeader(statusCode int) {
	recorder.statusCode = statusCode
	recorder.ResponseWriter.WriteHeader(statusCode)
}

// LoggingMiddleware logs every request and records its metrics. A request id
// is taken from the X-Request-ID header or generated.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		startTime := time.Now()

		requestID := request.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		responseWriter.Header().Set(RequestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: responseWriter, statusCode: http.StatusOK}
		ctx := context.WithValue(request.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(recorder, request.WithContext(ctx))

		duration := time.Since(startTime)
		endpoint := routeTemplate(request)
		metrics.RecordAPIRequest(request.Method, endpoint, strconv.Itoa(recorder.statusCode), duration)

		log.Info().
			Str("request_id", requestID).
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Str("endpoint", endpoint).
			Int("status", recorder.statusCode).
			Dur("duration", duration).
			Str("remote_addr", request.RemoteAddr).
			Msg("Request handled")
	})
}

// routeTemplate returns the matched mux route template, which keeps metric
// label cardinality bounded
func routeTemplate(request *http.Request) string {
	if route := mux.CurrentRoute(request); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}

// CORSMiddleware allows browser clients of the read API and answers preflight requests
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		headers := responseWriter.Header()
		headers.Set("Access-Control-Allow-Origin", "*")
		headers.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		headers.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")

		if request.Method == http.MethodOptions {
			responseWriter.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(responseWriter, request)
	})
}
