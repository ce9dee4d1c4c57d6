package api

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/aggregate"
	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/OPGLOL/opgl-raid-tracker/internal/storage"
	"github.com/OPGLOL/opgl-raid-tracker/internal/summary"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// RaidService is the read and ingestion boundary the handlers depend on
type RaidService interface {
	GetSnapshot() *models.Snapshot
	GetPlayerSummary(nickname string) (*models.PlayerSummary, bool)
	GetPlayerRaids(nickname string) []*models.RaidRecord
	GetRaidDetail(relativePath string) (*models.RaidRecord, error)
	DescribeStart(document any) (*models.RaidStart, error)
	Ingest(document any, nickname string, sessionID string, kind models.EventKind) (string, error)
	InvalidateCache()
}

// Handler manages HTTP request handlers for raid ingestion and reads
type Handler struct {
	raidService RaidService
}

// NewHandler creates a new Handler instance
func NewHandler(raidService RaidService) *Handler {
	return &Handler{
		raidService: raidService,
	}
}

// RaidListItem is the summary of one raid shown in lists
type RaidListItem struct {
	SourcePath      string            `json:"sourcePath"`
	SessionID       string            `json:"sessionId"`
	Timestamp       time.Time         `json:"timestampUtc"`
	TimestampKnown  bool              `json:"timestampKnown"`
	Nickname        string            `json:"playerNickname"`
	Level           int               `json:"level"`
	SideName        string            `json:"sideName"`
	Result          models.RaidResult `json:"result"`
	ResultName      string            `json:"resultName"`
	ExitName        string            `json:"exitName,omitempty"`
	LocationName    string            `json:"locationName"`
	DurationSeconds int               `json:"durationSeconds"`
	Kills           int               `json:"kills"`
	Headshots       int               `json:"headshots"`
	Experience      int64             `json:"experience"`
	KilledBy        string            `json:"killedBy,omitempty"`
}

// RaidListResponse is the response of GET /api/raids
type RaidListResponse struct {
	Raids       []RaidListItem `json:"raids"`
	TotalRaids  int            `json:"totalRaids"`
	ParseErrors []string       `json:"parseErrors"`
	BuiltAt     time.Time      `json:"builtAt"`
	Message     string         `json:"message"`
}

// PlayerDetailResponse is the response of GET /api/players/{nickname}
type PlayerDetailResponse struct {
	Summary      *models.PlayerSummary `json:"summary"`
	Raids        []RaidListItem        `json:"raids"`
	Skills       []models.SkillChange  `json:"skills"`
	Achievements []models.Achievement  `json:"achievements"`
}

// HealthCheck handles health check requests
func (handler *Handler) HealthCheck(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "opgl-raid-tracker",
	})
}

// ListRaids handles GET /api/raids. The optional limit query parameter caps
// the number of raids returned, newest first.
func (handler *Handler) ListRaids(writer http.ResponseWriter, request *http.Request) {
	limit := 0
	if limitParam := request.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			apierrors.WriteError(writer, apierrors.ValidationFailed("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	snapshot := handler.raidService.GetSnapshot()

	records := snapshot.Records
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	writeJSON(writer, http.StatusOK, RaidListResponse{
		Raids:       listItems(records),
		TotalRaids:  len(snapshot.Records),
		ParseErrors: snapshot.ParseErrors,
		BuiltAt:     snapshot.BuiltAt,
		Message:     loadMessage(len(snapshot.Records), len(snapshot.ParseErrors)),
	})
}

// ListPlayers handles GET /api/players. Players are sorted by nickname,
// ignoring case.
func (handler *Handler) ListPlayers(writer http.ResponseWriter, request *http.Request) {
	snapshot := handler.raidService.GetSnapshot()

	players := make([]*models.PlayerSummary, 0, len(snapshot.Players))
	for _, nickname := range aggregate.SortedNicknames(snapshot.Players) {
		players = append(players, snapshot.Players[nickname])
	}

	writeJSON(writer, http.StatusOK, players)
}

// GetPlayer handles GET /api/players/{nickname}
func (handler *Handler) GetPlayer(writer http.ResponseWriter, request *http.Request) {
	nickname := mux.Vars(request)["nickname"]

	playerSummary, found := handler.raidService.GetPlayerSummary(nickname)
	if !found {
		apierrors.WriteError(writer, apierrors.PlayerNotFound(nickname))
		return
	}

	raids := handler.raidService.GetPlayerRaids(nickname)
	response := PlayerDetailResponse{
		Summary:      playerSummary,
		Raids:        listItems(raids),
		Skills:       []models.SkillChange{},
		Achievements: []models.Achievement{},
	}

	// Skills and achievements come from the newest raid
	if len(raids) > 0 {
		if raids[0].Skills != nil {
			response.Skills = raids[0].Skills
		}
		if raids[0].Achievements != nil {
			response.Achievements = raids[0].Achievements
		}
	}

	writeJSON(writer, http.StatusOK, response)
}

// GetRaidDetail handles GET /api/raids/detail?path=<relative path>
func (handler *Handler) GetRaidDetail(writer http.ResponseWriter, request *http.Request) {
	relativePath := request.URL.Query().Get("path")
	if relativePath == "" {
		apierrors.WriteError(writer, apierrors.ValidationFailed("path is required"))
		return
	}

	record, err := handler.raidService.GetRaidDetail(relativePath)
	if err != nil {
		apierrors.WriteError(writer, detailError(relativePath, err))
		return
	}

	writeJSON(writer, http.StatusOK, record)
}

// detailError maps a detail lookup failure to its API error
func detailError(relativePath string, err error) *apierrors.APIError {
	var structuralError *apierrors.StructuralError

	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		return apierrors.InvalidPath("Invalid raid document path")
	case errors.Is(err, fs.ErrNotExist):
		return apierrors.RaidNotFound(relativePath)
	case errors.As(err, &structuralError), errors.Is(err, summary.ErrUnreadableDocument):
		return apierrors.ParseError(err.Error())
	default:
		log.Error().Err(err).Str("path", relativePath).Msg("Failed to read raid document")
		return apierrors.StorageFailure("Failed to read raid document")
	}
}

// listItems converts records to their list view
func listItems(records []*models.RaidRecord) []RaidListItem {
	items := make([]RaidListItem, 0, len(records))
	for _, record := range records {
		item := RaidListItem{
			SourcePath:      record.SourcePath,
			SessionID:       record.SessionID,
			Timestamp:       record.Timestamp,
			TimestampKnown:  record.TimestampKnown,
			Nickname:        record.Nickname,
			Level:           record.Level,
			SideName:        record.SideName,
			Result:          record.Result,
			ResultName:      record.ResultName,
			ExitName:        record.ExitName,
			LocationName:    record.LocationName,
			DurationSeconds: record.DurationSeconds,
			Kills:           record.Kills,
			Headshots:       record.Headshots,
			Experience:      record.Experience.Total,
		}
		if record.Killer != nil {
			item.KilledBy = record.Killer.Name
		}
		items = append(items, item)
	}
	return items
}

// loadMessage summarizes a snapshot build for display
func loadMessage(raids int, failures int) string {
	if failures == 0 {
		return strconv.Itoa(raids) + " raids loaded"
	}
	return strconv.Itoa(raids) + " raids loaded, " + strconv.Itoa(failures) + " files failed"
}

// writeJSON writes body as a JSON response with the given status
func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
