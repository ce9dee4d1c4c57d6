package errors

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// ErrorCode represents a unique error code for client handling
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodePlayerNotFound     ErrorCode = "PLAYER_NOT_FOUND"
	ErrCodeRaidNotFound       ErrorCode = "RAID_NOT_FOUND"
	ErrCodeInvalidPath        ErrorCode = "INVALID_PATH"
	ErrCodeParseError         ErrorCode = "PARSE_ERROR"
	ErrCodeMissingAPIKey      ErrorCode = "MISSING_API_KEY"
	ErrCodeInvalidAPIKey      ErrorCode = "INVALID_API_KEY"
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// Server errors (5xx)
	ErrCodeStorageError  ErrorCode = "STORAGE_ERROR"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a structured error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (apiError *APIError) Error() string {
	return apiError.Message
}

// ErrorResponse is the JSON structure returned to clients
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewAPIError creates a new APIError
func NewAPIError(code ErrorCode, message string, status int) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common error constructors for consistent error creation
func InvalidRequestBody(message string) *APIError {
	return NewAPIError(ErrCodeInvalidRequestBody, message, http.StatusBadRequest)
}

func ValidationFailed(message string) *APIError {
	return NewAPIError(ErrCodeValidationFailed, message, http.StatusBadRequest)
}

func PlayerNotFound(nickname string) *APIError {
	return NewAPIError(ErrCodePlayerNotFound, "Player not found: "+nickname, http.StatusNotFound)
}

func RaidNotFound(relativePath string) *APIError {
	return NewAPIError(ErrCodeRaidNotFound, "Raid document not found: "+relativePath, http.StatusNotFound)
}

func InvalidPath(message string) *APIError {
	return NewAPIError(ErrCodeInvalidPath, message, http.StatusBadRequest)
}

func ParseError(message string) *APIError {
	return NewAPIError(ErrCodeParseError, message, http.StatusUnprocessableEntity)
}

func StorageFailure(message string) *APIError {
	return NewAPIError(ErrCodeStorageError, message, http.StatusInternalServerError)
}

func InternalError(message string) *APIError {
	return NewAPIError(ErrCodeInternalError, message, http.StatusInternalServerError)
}

// WriteError writes a JSON error response to the http.ResponseWriter
func WriteError(writer http.ResponseWriter, apiError *APIError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apiError.Status)

	errorResponse := ErrorResponse{
		Error: ErrorDetail{
			Code:    apiError.Code,
			Message: apiError.Message,
		},
	}

	json.NewEncoder(writer).Encode(errorResponse)
}

// StructuralError reports a telemetry document that lacks a required section.
// The document is rejected and no record is produced.
type StructuralError struct {
	Path    string
	Section string
}

// Error implements the error interface
func (structuralError *StructuralError) Error() string {
	if structuralError.Path == "" {
		return fmt.Sprintf("missing required section %q", structuralError.Section)
	}
	return fmt.Sprintf("%s: missing required section %q", structuralError.Path, structuralError.Section)
}

// StorageError reports a filesystem failure while reading or writing raid documents
type StorageError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (storageError *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", storageError.Op, storageError.Path, storageError.Err)
}

// Unwrap returns the underlying filesystem error
func (storageError *StorageError) Unwrap() error {
	return storageError.Err
}
