package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/middleware"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/OPGLOL/opgl-raid-tracker/internal/telemetry"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxDocumentBytes caps the size of an ingested document
const MaxDocumentBytes = 32 << 20

// SystemNickname owns connect events, which carry no player
const SystemNickname = "SYSTEM"

// IngestResponse is returned by the mod endpoints
type IngestResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// ModConnect handles POST /api/mod/connect
func (handler *Handler) ModConnect(writer http.ResponseWriter, request *http.Request) {
	document, apiError := decodeDocument(writer, request)
	if apiError != nil {
		apierrors.WriteError(writer, apiError)
		return
	}

	modName := "unknown_mod"
	if name, ok := document.Get("mod").NonEmptyText(); ok {
		modName = strings.ReplaceAll(name, " ", "_")
	}

	log.Info().
		Str("mod", modName).
		Str("version", document.Get("version").TextOr("")).
		Msg("Mod connected")

	handler.ingest(writer, request, document, SystemNickname, modName, models.EventConnect)
}

// RaidStart handles POST /api/mod/raid/start
func (handler *Handler) RaidStart(writer http.ResponseWriter, request *http.Request) {
	document, apiError := decodeDocument(writer, request)
	if apiError != nil {
		apierrors.WriteError(writer, apiError)
		return
	}

	sessionID, ok := document.Get("sessionId").NonEmptyText()
	if !ok {
		sessionID = "unknownS_" + uuid.NewString()
	}
	nickname, ok := document.Get("request", "playerProfile", "Info", "Nickname").NonEmptyText()
	if !ok {
		nickname = sessionID
	}

	// The start document is only described for the log; it is stored either way
	start, err := handler.raidService.DescribeStart(document.Raw())
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Could not describe raid start")
	} else {
		log.Info().
			Str("session_id", sessionID).
			Str("nickname", nickname).
			Str("location", start.LocationName).
			Str("time_variant", start.TimeVariant).
			Msg("Raid started")
	}

	handler.ingest(writer, request, document, nickname, sessionID, models.EventStart)
}

// RaidEnd handles POST /api/mod/raid/end
func (handler *Handler) RaidEnd(writer http.ResponseWriter, request *http.Request) {
	document, apiError := decodeDocument(writer, request)
	if apiError != nil {
		apierrors.WriteError(writer, apiError)
		return
	}

	sessionID, ok := document.Get("sessionId").NonEmptyText()
	if !ok {
		sessionID, ok = document.Get("request", "results", "profile", "_id").NonEmptyText()
	}
	if !ok {
		sessionID = "no_sid_end_" + uuid.NewString()
	}
	nickname, ok := document.Get("request", "results", "profile", "Info", "Nickname").NonEmptyText()
	if !ok {
		nickname = sessionID
	}

	log.Info().
		Str("session_id", sessionID).
		Str("nickname", nickname).
		Str("result", document.Get("request", "results", "result").TextOr("unknown")).
		Msg("Raid ended")

	handler.ingest(writer, request, document, nickname, sessionID, models.EventEnd)
}

// ingest stores document and writes the ingestion response
func (handler *Handler) ingest(writer http.ResponseWriter, request *http.Request, document telemetry.Node, nickname string, sessionID string, kind models.EventKind) {
	relativePath, err := handler.raidService.Ingest(document.Raw(), nickname, sessionID, kind)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(request.Context())).
			Str("nickname", nickname).
			Str("kind", string(kind)).
			Msg("Failed to store raid document")
		apierrors.WriteError(writer, apierrors.StorageFailure("Failed to store document"))
		return
	}

	if relativePath == "" {
		log.Debug().Str("nickname", nickname).Str("kind", string(kind)).Msg("Ignored document for excluded nickname")
	}

	writeJSON(writer, http.StatusOK, IngestResponse{Status: "success", Path: relativePath})
}

// decodeDocument reads the request body as a JSON object. Numbers are kept as
// json.Number so stored documents keep their original precision.
func decodeDocument(writer http.ResponseWriter, request *http.Request) (telemetry.Node, *apierrors.APIError) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, MaxDocumentBytes))
	if err != nil {
		return telemetry.Node{}, apierrors.InvalidRequestBody("Failed to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return telemetry.Node{}, apierrors.InvalidRequestBody("Request body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var document map[string]any
	if err := decoder.Decode(&document); err != nil || document == nil {
		return telemetry.Node{}, apierrors.InvalidRequestBody("Request body must be a JSON object")
	}

	return telemetry.NewNode(document), nil
}
