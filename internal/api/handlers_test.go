package api

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/OPGLOL/opgl-raid-tracker/internal/storage"
	"github.com/OPGLOL/opgl-raid-tracker/internal/summary"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// MockRaidService is a mock implementation of RaidService for testing
type MockRaidService struct {
	GetSnapshotFunc      func() *models.Snapshot
	GetPlayerSummaryFunc func(nickname string) (*models.PlayerSummary, bool)
	GetPlayerRaidsFunc   func(nickname string) []*models.RaidRecord
	GetRaidDetailFunc    func(relativePath string) (*models.RaidRecord, error)
	DescribeStartFunc    func(document any) (*models.RaidStart, error)
	IngestFunc           func(document any, nickname string, sessionID string, kind models.EventKind) (string, error)
	InvalidateCacheFunc  func()
}

func (mock *MockRaidService) GetSnapshot() *models.Snapshot {
	if mock.GetSnapshotFunc != nil {
		return mock.GetSnapshotFunc()
	}
	return models.NewSnapshot(nil, map[string]*models.PlayerSummary{}, []string{}, time.Time{}, 0)
}

func (mock *MockRaidService) GetPlayerSummary(nickname string) (*models.PlayerSummary, bool) {
	if mock.GetPlayerSummaryFunc != nil {
		return mock.GetPlayerSummaryFunc(nickname)
	}
	return nil, false
}

func (mock *MockRaidService) GetPlayerRaids(nickname string) []*models.RaidRecord {
	if mock.GetPlayerRaidsFunc != nil {
		return mock.GetPlayerRaidsFunc(nickname)
	}
	return nil
}

func (mock *MockRaidService) GetRaidDetail(relativePath string) (*models.RaidRecord, error) {
	if mock.GetRaidDetailFunc != nil {
		return mock.GetRaidDetailFunc(relativePath)
	}
	return nil, nil
}

func (mock *MockRaidService) DescribeStart(document any) (*models.RaidStart, error) {
	if mock.DescribeStartFunc != nil {
		return mock.DescribeStartFunc(document)
	}
	return &models.RaidStart{}, nil
}

func (mock *MockRaidService) Ingest(document any, nickname string, sessionID string, kind models.EventKind) (string, error) {
	if mock.IngestFunc != nil {
		return mock.IngestFunc(document, nickname, sessionID, kind)
	}
	return "", nil
}

func (mock *MockRaidService) InvalidateCache() {
	if mock.InvalidateCacheFunc != nil {
		mock.InvalidateCacheFunc()
	}
}

func testSnapshot() *models.Snapshot {
	newer := &models.RaidRecord{
		SourcePath: "Alice/b_end.json",
		Nickname:   "Alice",
		Result:     models.ResultKilled,
		Kills:      1,
		Killer:     &models.KillerInfo{Name: "Tagilla"},
		Skills:     []models.SkillChange{{ID: "Endurance", Type: models.SkillCommon, PointsEarned: 12}},
	}
	older := &models.RaidRecord{SourcePath: "Alice/a_end.json", Nickname: "Alice", Result: models.ResultSurvived, Kills: 3}
	bob := &models.RaidRecord{SourcePath: "bob/a_end.json", Nickname: "bob", Result: models.ResultSurvived}

	players := map[string]*models.PlayerSummary{
		"Alice": {Nickname: "Alice", RaidCount: 2, TotalKills: 4},
		"bob":   {Nickname: "bob", RaidCount: 1},
		"Carl":  {Nickname: "Carl"},
	}
	return models.NewSnapshot([]*models.RaidRecord{newer, bob, older}, players, []string{"Dave/x_end.json: broken"}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), 0)
}

// TestHealthCheck tests the health check endpoint
func TestHealthCheck(t *testing.T) {
	handler := NewHandler(&MockRaidService{})

	request := httptest.NewRequest(http.MethodPost, "/health", nil)
	responseRecorder := httptest.NewRecorder()
	handler.HealthCheck(responseRecorder, request)

	if responseRecorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, responseRecorder.Code)
	}
	if contentType := responseRecorder.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["service"] != "opgl-raid-tracker" {
		t.Errorf("Expected service 'opgl-raid-tracker', got '%s'", response["service"])
	}
}

// TestListRaids tests the raid list with and without a limit
func TestListRaids(t *testing.T) {
	handler := NewHandler(&MockRaidService{GetSnapshotFunc: testSnapshot})

	testCases := []struct {
		name          string
		query         string
		expectedCount int
	}{
		{name: "no limit", query: "", expectedCount: 3},
		{name: "limit 2", query: "?limit=2", expectedCount: 2},
		{name: "limit above total", query: "?limit=10", expectedCount: 3},
		{name: "limit 0 means all", query: "?limit=0", expectedCount: 3},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/raids"+testCase.query, nil)
			responseRecorder := httptest.NewRecorder()
			handler.ListRaids(responseRecorder, request)

			var response RaidListResponse
			if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(response.Raids) != testCase.expectedCount {
				t.Errorf("Expected %d raids, got %d", testCase.expectedCount, len(response.Raids))
			}
			if response.TotalRaids != 3 {
				t.Errorf("Expected total 3, got %d", response.TotalRaids)
			}
			if response.Message != "3 raids loaded, 1 files failed" {
				t.Errorf("Unexpected message '%s'", response.Message)
			}
			if response.Raids[0].KilledBy != "Tagilla" {
				t.Errorf("Expected newest raid first with killer, got %+v", response.Raids[0])
			}
		})
	}
}

// TestListRaidsInvalidLimit tests limit validation
func TestListRaidsInvalidLimit(t *testing.T) {
	handler := NewHandler(&MockRaidService{GetSnapshotFunc: testSnapshot})

	for _, query := range []string{"?limit=abc", "?limit=-1"} {
		request := httptest.NewRequest(http.MethodGet, "/api/raids"+query, nil)
		responseRecorder := httptest.NewRecorder()
		handler.ListRaids(responseRecorder, request)

		if responseRecorder.Code != http.StatusBadRequest {
			t.Errorf("Expected status code %d for %s, got %d", http.StatusBadRequest, query, responseRecorder.Code)
		}
	}
}

// TestListPlayers tests case-insensitive ordering of players
func TestListPlayers(t *testing.T) {
	handler := NewHandler(&MockRaidService{GetSnapshotFunc: testSnapshot})

	request := httptest.NewRequest(http.MethodGet, "/api/players", nil)
	responseRecorder := httptest.NewRecorder()
	handler.ListPlayers(responseRecorder, request)

	var players []models.PlayerSummary
	if err := json.NewDecoder(responseRecorder.Body).Decode(&players); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	expected := []string{"Alice", "bob", "Carl"}
	if len(players) != len(expected) {
		t.Fatalf("Expected %d players, got %d", len(expected), len(players))
	}
	for index, nickname := range expected {
		if players[index].Nickname != nickname {
			t.Errorf("Expected player %d to be '%s', got '%s'", index, nickname, players[index].Nickname)
		}
	}
}

// TestGetPlayer tests the player detail with skills from the newest raid
func TestGetPlayer(t *testing.T) {
	snapshot := testSnapshot()
	handler := NewHandler(&MockRaidService{
		GetPlayerSummaryFunc: func(nickname string) (*models.PlayerSummary, bool) {
			playerSummary, ok := snapshot.Players[nickname]
			return playerSummary, ok
		},
		GetPlayerRaidsFunc: snapshot.RecordsFor,
	})

	request := httptest.NewRequest(http.MethodGet, "/api/players/Alice", nil)
	request = mux.SetURLVars(request, map[string]string{"nickname": "Alice"})
	responseRecorder := httptest.NewRecorder()
	handler.GetPlayer(responseRecorder, request)

	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, responseRecorder.Code)
	}

	var response PlayerDetailResponse
	if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Summary.TotalKills != 4 {
		t.Errorf("Expected 4 kills, got %d", response.Summary.TotalKills)
	}
	if len(response.Raids) != 2 {
		t.Errorf("Expected 2 raids, got %d", len(response.Raids))
	}
	if len(response.Skills) != 1 || response.Skills[0].ID != "Endurance" {
		t.Errorf("Expected skills from the newest raid, got %+v", response.Skills)
	}
	if response.Achievements == nil {
		t.Error("Expected an empty achievements list, got null")
	}
}

// TestGetPlayerNotFound tests the unknown player response
func TestGetPlayerNotFound(t *testing.T) {
	handler := NewHandler(&MockRaidService{})

	request := httptest.NewRequest(http.MethodGet, "/api/players/Nobody", nil)
	request = mux.SetURLVars(request, map[string]string{"nickname": "Nobody"})
	responseRecorder := httptest.NewRecorder()
	handler.GetPlayer(responseRecorder, request)

	if responseRecorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, responseRecorder.Code)
	}

	var response apierrors.ErrorResponse
	if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Error.Code != apierrors.ErrCodePlayerNotFound {
		t.Errorf("Expected code %s, got %s", apierrors.ErrCodePlayerNotFound, response.Error.Code)
	}
}

// TestGetRaidDetailErrors tests the mapping of detail errors to status codes
func TestGetRaidDetailErrors(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   apierrors.ErrorCode
	}{
		{name: "traversal", err: fmt.Errorf("%w: ../x.json", storage.ErrInvalidPath), expectedStatus: http.StatusBadRequest, expectedCode: apierrors.ErrCodeInvalidPath},
		{name: "missing", err: &apierrors.StorageError{Op: "stat", Path: "a_end.json", Err: fs.ErrNotExist}, expectedStatus: http.StatusNotFound, expectedCode: apierrors.ErrCodeRaidNotFound},
		{name: "structural", err: &apierrors.StructuralError{Path: "a_end.json", Section: "request.results"}, expectedStatus: http.StatusUnprocessableEntity, expectedCode: apierrors.ErrCodeParseError},
		{name: "invalid json", err: fmt.Errorf("a_end.json: %w", summary.ErrUnreadableDocument), expectedStatus: http.StatusUnprocessableEntity, expectedCode: apierrors.ErrCodeParseError},
		{name: "io failure", err: &apierrors.StorageError{Op: "read", Path: "a_end.json", Err: errors.New("i/o error")}, expectedStatus: http.StatusInternalServerError, expectedCode: apierrors.ErrCodeStorageError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := NewHandler(&MockRaidService{
				GetRaidDetailFunc: func(relativePath string) (*models.RaidRecord, error) {
					return nil, testCase.err
				},
			})

			request := httptest.NewRequest(http.MethodGet, "/api/raids/detail?path=a_end.json", nil)
			responseRecorder := httptest.NewRecorder()
			handler.GetRaidDetail(responseRecorder, request)

			if responseRecorder.Code != testCase.expectedStatus {
				t.Errorf("Expected status code %d, got %d", testCase.expectedStatus, responseRecorder.Code)
			}

			var response apierrors.ErrorResponse
			if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Error.Code != testCase.expectedCode {
				t.Errorf("Expected code %s, got %s", testCase.expectedCode, response.Error.Code)
			}
		})
	}
}

// TestGetRaidDetailSuccess tests that the full record is returned
func TestGetRaidDetailSuccess(t *testing.T) {
	var requestedPath string
	handler := NewHandler(&MockRaidService{
		GetRaidDetailFunc: func(relativePath string) (*models.RaidRecord, error) {
			requestedPath = relativePath
			return &models.RaidRecord{SourcePath: relativePath, Kills: 5}, nil
		},
	})

	request := httptest.NewRequest(http.MethodGet, "/api/raids/detail?path=Alice%2Fa_end.json", nil)
	responseRecorder := httptest.NewRecorder()
	handler.GetRaidDetail(responseRecorder, request)

	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, responseRecorder.Code)
	}
	if requestedPath != "Alice/a_end.json" {
		t.Errorf("Expected path 'Alice/a_end.json', got '%s'", requestedPath)
	}

	var record models.RaidRecord
	if err := json.NewDecoder(responseRecorder.Body).Decode(&record); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if record.Kills != 5 {
		t.Errorf("Expected 5 kills, got %d", record.Kills)
	}
}

// TestGetRaidDetailMissingPath tests that the path parameter is required
func TestGetRaidDetailMissingPath(t *testing.T) {
	handler := NewHandler(&MockRaidService{})

	request := httptest.NewRequest(http.MethodGet, "/api/raids/detail", nil)
	responseRecorder := httptest.NewRecorder()
	handler.GetRaidDetail(responseRecorder, request)

	if responseRecorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, responseRecorder.Code)
	}
}

// ingestCall captures the arguments of one Ingest call
type ingestCall struct {
	document  any
	nickname  string
	sessionID string
	kind      models.EventKind
}

func recordingService(calls *[]ingestCall, path string, err error) *MockRaidService {
	return &MockRaidService{
		IngestFunc: func(document any, nickname string, sessionID string, kind models.EventKind) (string, error) {
			*calls = append(*calls, ingestCall{document: document, nickname: nickname, sessionID: sessionID, kind: kind})
			return path, err
		},
	}
}

// TestRaidEnd tests identity extraction from a session-end document
func TestRaidEnd(t *testing.T) {
	var calls []ingestCall
	handler := NewHandler(recordingService(&calls, "Alice/s1_20240501_120000_000000_end.json", nil))

	body := `{"sessionId": "s1", "request": {"results": {"result": "Survived", "profile": {"_id": "p1", "Info": {"Nickname": "Alice"}}}}}`
	request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/end", bytes.NewBufferString(body))
	responseRecorder := httptest.NewRecorder()
	handler.RaidEnd(responseRecorder, request)

	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, responseRecorder.Code)
	}
	if len(calls) != 1 {
		t.Fatalf("Expected 1 ingest call, got %d", len(calls))
	}
	if calls[0].nickname != "Alice" || calls[0].sessionID != "s1" || calls[0].kind != models.EventEnd {
		t.Errorf("Unexpected ingest call %+v", calls[0])
	}

	var response IngestResponse
	if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "success" || response.Path != "Alice/s1_20240501_120000_000000_end.json" {
		t.Errorf("Unexpected response %+v", response)
	}
}

// TestRaidEndSessionFallbacks tests the session id and nickname fallbacks
func TestRaidEndSessionFallbacks(t *testing.T) {
	testCases := []struct {
		name             string
		body             string
		expectedSession  string
		expectedNickname string
		sessionPrefix    string
	}{
		{
			name:             "profile id",
			body:             `{"request": {"results": {"profile": {"_id": "p1", "Info": {"Nickname": "Alice"}}}}}`,
			expectedSession:  "p1",
			expectedNickname: "Alice",
		},
		{
			name:             "nickname falls back to session",
			body:             `{"sessionId": "s9", "request": {"results": {"profile": {}}}}`,
			expectedSession:  "s9",
			expectedNickname: "s9",
		},
		{
			name:          "generated session",
			body:          `{"request": {}}`,
			sessionPrefix: "no_sid_end_",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var calls []ingestCall
			handler := NewHandler(recordingService(&calls, "", nil))

			request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/end", bytes.NewBufferString(testCase.body))
			responseRecorder := httptest.NewRecorder()
			handler.RaidEnd(responseRecorder, request)

			if len(calls) != 1 {
				t.Fatalf("Expected 1 ingest call, got %d", len(calls))
			}
			call := calls[0]
			if testCase.sessionPrefix != "" {
				if len(call.sessionID) <= len(testCase.sessionPrefix) || call.sessionID[:len(testCase.sessionPrefix)] != testCase.sessionPrefix {
					t.Errorf("Expected session id with prefix '%s', got '%s'", testCase.sessionPrefix, call.sessionID)
				}
				if call.nickname != call.sessionID {
					t.Errorf("Expected nickname to fall back to the session id, got '%s'", call.nickname)
				}
				return
			}
			if call.sessionID != testCase.expectedSession || call.nickname != testCase.expectedNickname {
				t.Errorf("Expected %s/%s, got %s/%s", testCase.expectedNickname, testCase.expectedSession, call.nickname, call.sessionID)
			}
		})
	}
}

// TestRaidStart tests start ingestion and that describe failures are not fatal
func TestRaidStart(t *testing.T) {
	var calls []ingestCall
	service := recordingService(&calls, "Bob/s2_start.json", nil)
	service.DescribeStartFunc = func(document any) (*models.RaidStart, error) {
		return nil, &apierrors.StructuralError{Section: "request"}
	}
	handler := NewHandler(service)

	body := `{"sessionId": "s2", "request": {"playerProfile": {"Info": {"Nickname": "Bob"}}}}`
	request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/start", bytes.NewBufferString(body))
	responseRecorder := httptest.NewRecorder()
	handler.RaidStart(responseRecorder, request)

	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, responseRecorder.Code)
	}
	if len(calls) != 1 || calls[0].nickname != "Bob" || calls[0].sessionID != "s2" || calls[0].kind != models.EventStart {
		t.Errorf("Unexpected ingest calls %+v", calls)
	}
}

// TestModConnect tests that connect events are stored under the system nickname
func TestModConnect(t *testing.T) {
	testCases := []struct {
		body            string
		expectedSession string
	}{
		{body: `{"mod": "Raid Tracker Mod", "version": "1.2"}`, expectedSession: "Raid_Tracker_Mod"},
		{body: `{"version": "1.2"}`, expectedSession: "unknown_mod"},
	}

	for _, testCase := range testCases {
		var calls []ingestCall
		handler := NewHandler(recordingService(&calls, "SYSTEM/x_connect_event.json", nil))

		request := httptest.NewRequest(http.MethodPost, "/api/mod/connect", bytes.NewBufferString(testCase.body))
		responseRecorder := httptest.NewRecorder()
		handler.ModConnect(responseRecorder, request)

		if len(calls) != 1 {
			t.Fatalf("Expected 1 ingest call, got %d", len(calls))
		}
		if calls[0].nickname != SystemNickname || calls[0].sessionID != testCase.expectedSession || calls[0].kind != models.EventConnect {
			t.Errorf("Unexpected ingest call %+v", calls[0])
		}
	}
}

// TestIngestPreservesNumbers tests that numbers reach storage without float conversion
func TestIngestPreservesNumbers(t *testing.T) {
	var calls []ingestCall
	handler := NewHandler(recordingService(&calls, "", nil))

	body := `{"sessionId": "s1", "big": 12345678901234567890}`
	request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/end", bytes.NewBufferString(body))
	handler.RaidEnd(httptest.NewRecorder(), request)

	document, ok := calls[0].document.(map[string]any)
	if !ok {
		t.Fatalf("Expected an object document, got %T", calls[0].document)
	}
	encoded, err := json.Marshal(document["big"])
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if string(encoded) != "12345678901234567890" {
		t.Errorf("Expected number preserved, got %s", encoded)
	}
}

// TestIngestInvalidBody tests rejection of empty and non-object bodies
func TestIngestInvalidBody(t *testing.T) {
	bodies := []string{"", "   ", "invalid json", "[1, 2]", "null"}

	for _, body := range bodies {
		var calls []ingestCall
		handler := NewHandler(recordingService(&calls, "", nil))

		request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/end", bytes.NewBufferString(body))
		responseRecorder := httptest.NewRecorder()
		handler.RaidEnd(responseRecorder, request)

		if responseRecorder.Code != http.StatusBadRequest {
			t.Errorf("Expected status code %d for body %q, got %d", http.StatusBadRequest, body, responseRecorder.Code)
		}
		if len(calls) != 0 {
			t.Errorf("Expected no ingest call for body %q", body)
		}
	}
}

// TestIngestStorageFailure tests the storage error response
func TestIngestStorageFailure(t *testing.T) {
	var calls []ingestCall
	handler := NewHandler(recordingService(&calls, "", errors.New("disk full")))

	request := httptest.NewRequest(http.MethodPost, "/api/mod/raid/end", bytes.NewBufferString(`{"sessionId": "s1"}`))
	responseRecorder := httptest.NewRecorder()
	handler.RaidEnd(responseRecorder, request)

	if responseRecorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, responseRecorder.Code)
	}

	var response apierrors.ErrorResponse
	if err := json.NewDecoder(responseRecorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Error.Code != apierrors.ErrCodeStorageError {
		t.Errorf("Expected code %s, got %s", apierrors.ErrCodeStorageError, response.Error.Code)
	}
}
