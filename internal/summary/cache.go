package summary

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/aggregate"
	"github.com/OPGLOL/opgl-raid-tracker/internal/metrics"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/OPGLOL/opgl-raid-tracker/internal/storage"
	"github.com/OPGLOL/opgl-raid-tracker/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a snapshot is served before it is rebuilt
const DefaultTTL = 60 * time.Second

// Rebuild reasons reported to metrics and logs
const (
	reasonEmpty       = "empty"
	reasonExpired     = "expired"
	reasonInvalidated = "invalidated"
)

// DocumentSource lists and reads stored session-end documents
type DocumentSource interface {
	ListEndDocuments() ([]string, error)
	Open(relativePath string) (*storage.Document, error)
}

// RecordParser normalizes raw session documents
type RecordParser interface {
	ParseEnd(document telemetry.Node, source telemetry.Source) (*models.RaidRecord, error)
	ParseStart(document telemetry.Node) (*models.RaidStart, error)
}

// Cache holds the aggregated snapshot of all stored raids. Reads of a fresh
// snapshot do no I/O. A stale snapshot is rebuilt synchronously by the reader,
// built completely off to the side and then published with one atomic store,
// so concurrent readers see either the old or the new snapshot, never a
// partial one.
type Cache struct {
	source DocumentSource
	parser RecordParser
	ttl    time.Duration
	now    func() time.Time

	snapshot     atomic.Pointer[models.Snapshot]
	generation   atomic.Uint64
	rebuildMutex sync.Mutex
}

// NewCache creates a new Cache instance. A non-positive ttl uses DefaultTTL.
func NewCache(source DocumentSource, parser RecordParser, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		parser: parser,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the current snapshot, rebuilding it first when it is missing,
// older than the TTL, or invalidated since it was built
func (cache *Cache) Get() *models.Snapshot {
	current := cache.snapshot.Load()
	if _, stale := cache.staleness(current); !stale {
		metrics.CacheHits.Inc()
		return current
	}

	cache.rebuildMutex.Lock()
	defer cache.rebuildMutex.Unlock()

	// Another reader may have rebuilt while this one waited for the lock
	current = cache.snapshot.Load()
	reason, stale := cache.staleness(current)
	if !stale {
		metrics.CacheHits.Inc()
		return current
	}

	generation := cache.generation.Load()
	startTime := time.Now()
	snapshot := cache.build(generation)
	cache.snapshot.Store(snapshot)

	duration := time.Since(startTime)
	metrics.RecordRebuild(reason, duration, len(snapshot.Records), len(snapshot.Players), len(snapshot.ParseErrors))

	event := log.Info()
	if len(snapshot.ParseErrors) > 0 {
		event = log.Warn()
	}
	event.
		Str("reason", reason).
		Int("records", len(snapshot.Records)).
		Int("players", len(snapshot.Players)).
		Int("parse_errors", len(snapshot.ParseErrors)).
		Dur("duration", duration).
		Msg("Summary snapshot rebuilt")

	return snapshot
}

// Invalidate marks the current snapshot stale. The next Get rebuilds even if
// the TTL has not elapsed.
func (cache *Cache) Invalidate() {
	cache.generation.Add(1)
	metrics.CacheInvalidations.Inc()
}

// staleness reports whether snapshot must be rebuilt and why
func (cache *Cache) staleness(snapshot *models.Snapshot) (string, bool) {
	if snapshot == nil {
		return reasonEmpty, true
	}
	if snapshot.Generation() != cache.generation.Load() {
		return reasonInvalidated, true
	}
	if cache.now().Sub(snapshot.BuiltAt) >= cache.ttl {
		return reasonExpired, true
	}
	return "", false
}

// build reads and parses every session-end document. A document that cannot
// be read or parsed is left out and reported in the snapshot's error list.
func (cache *Cache) build(generation uint64) *models.Snapshot {
	builtAt := cache.now()
	parseErrors := []string{}

	paths, err := cache.source.ListEndDocuments()
	if err != nil {
		log.Warn().Err(err).Msg("Raid document listing incomplete")
		metrics.StorageErrors.WithLabelValues("list").Inc()
		parseErrors = append(parseErrors, err.Error())
	}

	records := make([]*models.RaidRecord, 0, len(paths))
	for _, relativePath := range paths {
		record, err := cache.load(relativePath)
		if err != nil {
			log.Warn().Err(err).Str("path", relativePath).Msg("Skipping raid document")
			parseErrors = append(parseErrors, err.Error())
			continue
		}
		records = append(records, record)
	}

	aggregate.SortChronologically(records)
	players := aggregate.Fold(records)
	aggregate.SortNewestFirst(records)

	return models.NewSnapshot(records, players, parseErrors, builtAt, generation)
}

// load reads, decodes and parses one stored document
func (cache *Cache) load(relativePath string) (*models.RaidRecord, error) {
	document, err := cache.source.Open(relativePath)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("read").Inc()
		return nil, err
	}
	return decodeAndParse(cache.parser, document)
}

// decodeAndParse turns a stored document into a record
func decodeAndParse(parser RecordParser, document *storage.Document) (*models.RaidRecord, error) {
	node, err := telemetry.DecodeDocument(document.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", document.RelativePath, ErrUnreadableDocument, err)
	}
	return parser.ParseEnd(node, telemetry.Source{
		RelativePath: document.RelativePath,
		ModTime:      document.ModTime,
	})
}
