package summary

import (
	"errors"

	"github.com/OPGLOL/opgl-raid-tracker/internal/metrics"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/OPGLOL/opgl-raid-tracker/internal/storage"
	"github.com/OPGLOL/opgl-raid-tracker/internal/telemetry"
)

// ErrUnreadableDocument is returned for stored documents that are not valid JSON
var ErrUnreadableDocument = errors.New("document is not valid JSON")

// RaidStore is the storage the service reads from and writes to
type RaidStore interface {
	DocumentSource
	Write(document any, nickname string, sessionID string, kind models.EventKind) (string, error)
}

// Service is the boundary used by the HTTP layer: snapshot reads, raid
// details and ingestion
type Service struct {
	store  RaidStore
	parser RecordParser
	cache  *Cache
}

// NewService creates a new Service instance
func NewService(store RaidStore, parser RecordParser, cache *Cache) *Service {
	return &Service{
		store:  store,
		parser: parser,
		cache:  cache,
	}
}

// GetSnapshot returns the current aggregated snapshot
func (service *Service) GetSnapshot() *models.Snapshot {
	return service.cache.Get()
}

// GetPlayerSummary returns the lifetime summary of one player
func (service *Service) GetPlayerSummary(nickname string) (*models.PlayerSummary, bool) {
	summary, ok := service.cache.Get().Players[nickname]
	return summary, ok
}

// GetPlayerRaids returns the raids of one player, newest first
func (service *Service) GetPlayerRaids(nickname string) []*models.RaidRecord {
	return service.cache.Get().RecordsFor(nickname)
}

// GetRaidDetail reads and parses one stored session-end document. It bypasses
// the cache so the detail always reflects the file on disk.
func (service *Service) GetRaidDetail(relativePath string) (*models.RaidRecord, error) {
	document, err := service.store.Open(relativePath)
	if err != nil {
		return nil, err
	}
	return decodeAndParse(service.parser, document)
}

// DescribeStart parses a session-start document for logging
func (service *Service) DescribeStart(document any) (*models.RaidStart, error) {
	return service.parser.ParseStart(telemetry.NewNode(document))
}

// Ingest stores a session document and invalidates the cache when a file was
// written. Documents for ignored nicknames return an empty path.
func (service *Service) Ingest(document any, nickname string, sessionID string, kind models.EventKind) (string, error) {
	relativePath, err := service.store.Write(document, nickname, sessionID, kind)
	metrics.RecordStoredDocument(string(kind), err == nil && relativePath == "", err)
	if err != nil {
		return "", err
	}

	if relativePath != "" {
		service.cache.Invalidate()
	}
	return relativePath, nil
}

// InvalidateCache forces the next read to rebuild the snapshot
func (service *Service) InvalidateCache() {
	service.cache.Invalidate()
}

var _ RaidStore = (*storage.RaidStore)(nil)
