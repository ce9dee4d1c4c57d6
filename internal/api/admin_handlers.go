package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/auth"
	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/middleware"
	"github.com/OPGLOL/opgl-raid-tracker/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// IngestKeyPrefix marks plain ingest keys so they are recognizable in mod configs
const IngestKeyPrefix = "orc_"

// Defaults applied to new ingest keys
const (
	DefaultKeyRateLimit     = 120
	DefaultKeyWindowSeconds = 60
)

var requestValidator = validator.New()

// AdminLogin verifies the admin password and issues tokens
type AdminLogin interface {
	Login(password string) (*auth.AccessToken, error)
}

// AdminHandler manages admin HTTP request handlers
type AdminHandler struct {
	adminLogin          AdminLogin
	raidService         RaidService
	ingestKeyRepository repository.IngestKeyRepository
}

// NewAdminHandler creates a new AdminHandler instance. ingestKeyRepository
// may be nil when no database is configured.
func NewAdminHandler(adminLogin AdminLogin, raidService RaidService, ingestKeyRepository repository.IngestKeyRepository) *AdminHandler {
	return &AdminHandler{
		adminLogin:          adminLogin,
		raidService:         raidService,
		ingestKeyRepository: ingestKeyRepository,
	}
}

// HasIngestKeys reports whether ingest key management is available
func (adminHandler *AdminHandler) HasIngestKeys() bool {
	return adminHandler.ingestKeyRepository != nil
}

// LoginRequest represents the request body for admin login
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// CreateIngestKeyRequest represents the request body for creating an ingest key
type CreateIngestKeyRequest struct {
	Name              string `json:"name" validate:"required,max=100"`
	RateLimit         int    `json:"rateLimit" validate:"omitempty,min=1,max=100000"`
	RateWindowSeconds int    `json:"rateWindowSeconds" validate:"omitempty,min=1,max=86400"`
}

// CreateIngestKeyResponse is returned once, with the plain key
type CreateIngestKeyResponse struct {
	ID                string `json:"id"`
	APIKey            string `json:"apiKey"`
	Name              string `json:"name"`
	RateLimit         int    `json:"rateLimit"`
	RateWindowSeconds int    `json:"rateWindowSeconds"`
}

// IngestKeyListItem represents an ingest key in list responses, without the key
type IngestKeyListItem struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	RateLimit         int    `json:"rateLimit"`
	RateWindowSeconds int    `json:"rateWindowSeconds"`
	IsActive          bool   `json:"isActive"`
	DocumentsIngested int64  `json:"documentsIngested"`
	CreatedAt         string `json:"createdAt"`
	LastUsedAt        string `json:"lastUsedAt,omitempty"`
}

// Login handles POST /api/admin/login
func (adminHandler *AdminHandler) Login(writer http.ResponseWriter, request *http.Request) {
	var loginRequest LoginRequest
	if apiError := decodeRequest(request, &loginRequest); apiError != nil {
		apierrors.WriteError(writer, apiError)
		return
	}

	accessToken, err := adminHandler.adminLogin.Login(loginRequest.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		log.Warn().Str("remote_addr", request.RemoteAddr).Msg("Rejected admin login")
		apierrors.WriteError(writer, apierrors.NewAPIError(
			apierrors.ErrCodeInvalidCredentials,
			"Invalid password",
			http.StatusUnauthorized,
		))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue admin token")
		apierrors.WriteError(writer, apierrors.InternalError("Failed to generate token"))
		return
	}

	writeJSON(writer, http.StatusOK, accessToken)
}

// InvalidateCache handles POST /api/admin/cache/invalidate
func (adminHandler *AdminHandler) InvalidateCache(writer http.ResponseWriter, request *http.Request) {
	adminHandler.raidService.InvalidateCache()

	log.Info().Str("token_id", middleware.TokenIDFromContext(request.Context())).Msg("Summary cache invalidated by admin")

	writeJSON(writer, http.StatusOK, map[string]string{
		"message": "Cache invalidated",
	})
}

// CreateIngestKey handles POST /api/admin/apikeys
func (adminHandler *AdminHandler) CreateIngestKey(writer http.ResponseWriter, request *http.Request) {
	var createRequest CreateIngestKeyRequest
	if apiError := decodeRequest(request, &createRequest); apiError != nil {
		apierrors.WriteError(writer, apiError)
		return
	}

	rateLimit := createRequest.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultKeyRateLimit
	}
	rateWindowSeconds := createRequest.RateWindowSeconds
	if rateWindowSeconds == 0 {
		rateWindowSeconds = DefaultKeyWindowSeconds
	}

	plainKey, err := generateIngestKey()
	if err != nil {
		apierrors.WriteError(writer, apierrors.InternalError("Failed to generate API key"))
		return
	}

	ingestKey, err := adminHandler.ingestKeyRepository.Create(
		request.Context(),
		createRequest.Name,
		repository.HashIngestKey(plainKey),
		rateLimit,
		rateWindowSeconds,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create ingest key")
		apierrors.WriteError(writer, apierrors.InternalError("Failed to create API key"))
		return
	}

	log.Info().Str("key_id", ingestKey.ID.String()).Str("name", ingestKey.Name).Msg("Ingest key created")

	// The plain key is only shown once
	writeJSON(writer, http.StatusCreated, CreateIngestKeyResponse{
		ID:                ingestKey.ID.String(),
		APIKey:            plainKey,
		Name:              ingestKey.Name,
		RateLimit:         ingestKey.RateLimit,
		RateWindowSeconds: ingestKey.RateWindowSeconds,
	})
}

// ListIngestKeys handles POST /api/admin/apikeys/list
func (adminHandler *AdminHandler) ListIngestKeys(writer http.ResponseWriter, request *http.Request) {
	ingestKeys, err := adminHandler.ingestKeyRepository.List(request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list ingest keys")
		apierrors.WriteError(writer, apierrors.InternalError("Failed to list API keys"))
		return
	}

	responseItems := make([]IngestKeyListItem, 0, len(ingestKeys))
	for _, ingestKey := range ingestKeys {
		item := IngestKeyListItem{
			ID:                ingestKey.ID.String(),
			Name:              ingestKey.Name,
			RateLimit:         ingestKey.RateLimit,
			RateWindowSeconds: ingestKey.RateWindowSeconds,
			IsActive:          ingestKey.IsActive,
			DocumentsIngested: ingestKey.DocumentsIngested,
			CreatedAt:         ingestKey.CreatedAt.Format(time.RFC3339),
		}
		if ingestKey.LastUsedAt.Valid {
			item.LastUsedAt = ingestKey.LastUsedAt.Time.Format(time.RFC3339)
		}
		responseItems = append(responseItems, item)
	}

	writeJSON(writer, http.StatusOK, responseItems)
}

// RevokeIngestKey handles DELETE /api/admin/apikeys/{id}
func (adminHandler *AdminHandler) RevokeIngestKey(writer http.ResponseWriter, request *http.Request) {
	id, err := uuid.Parse(mux.Vars(request)["id"])
	if err != nil {
		apierrors.WriteError(writer, apierrors.ValidationFailed("invalid id format"))
		return
	}

	err = adminHandler.ingestKeyRepository.Revoke(request.Context(), id)
	if errors.Is(err, repository.ErrIngestKeyNotFound) {
		apierrors.WriteError(writer, apierrors.NewAPIError(
			apierrors.ErrCodeInvalidAPIKey,
			"API key not found",
			http.StatusNotFound,
		))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("key_id", id.String()).Msg("Failed to revoke ingest key")
		apierrors.WriteError(writer, apierrors.InternalError("Failed to delete API key"))
		return
	}

	log.Info().Str("key_id", id.String()).Msg("Ingest key revoked")

	writeJSON(writer, http.StatusOK, map[string]string{
		"message": "API key revoked successfully",
	})
}

// decodeRequest decodes and validates a JSON request body into target
func decodeRequest(request *http.Request, target any) *apierrors.APIError {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return apierrors.InvalidRequestBody("Invalid JSON format")
	}

	if err := requestValidator.Struct(target); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return apierrors.ValidationFailed(first.Field() + " failed " + first.Tag() + " validation")
		}
		return apierrors.ValidationFailed(err.Error())
	}
	return nil
}

// generateIngestKey returns a random plain key (32 bytes, hex encoded)
func generateIngestKey() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", err
	}
	return IngestKeyPrefix + hex.EncodeToString(keyBytes), nil
}
