package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIngestKeyNotFound is returned when revoking a key that does not exist
var ErrIngestKeyNotFound = errors.New("ingest key not found")

// IngestKey is an API key issued to one mod installation
type IngestKey struct {
	ID                uuid.UUID
	KeyHash           string
	Name              string
	RateLimit         int
	RateWindowSeconds int
	IsActive          bool
	DocumentsIngested int64
	CreatedAt         time.Time
	LastUsedAt        sql.NullTime
}

// IngestKeyRepository defines the storage operations for ingest keys and
// their fixed rate-limit windows
type IngestKeyRepository interface {
	GetByKeyHash(ctx context.Context, keyHash string) (*IngestKey, error)
	Create(ctx context.Context, name string, keyHash string, rateLimit int, rateWindowSeconds int) (*IngestKey, error)
	List(ctx context.Context) ([]IngestKey, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID) error
	IncrementRequestCount(ctx context.Context, ingestKeyID uuid.UUID, windowStart time.Time) (int, error)
}

// PostgresIngestKeyRepository implements IngestKeyRepository using PostgreSQL
type PostgresIngestKeyRepository struct {
	database *sql.DB
}

// NewPostgresIngestKeyRepository creates a new PostgreSQL-backed ingest key repository
func NewPostgresIngestKeyRepository(database *sql.DB) *PostgresIngestKeyRepository {
	return &PostgresIngestKeyRepository{
		database: database,
	}
}

// HashIngestKey hashes a plain key using SHA-256. Only the hash is stored.
func HashIngestKey(plainKey string) string {
	hash := sha256.Sum256([]byte(plainKey))
	return hex.EncodeToString(hash[:])
}

const ingestKeyColumns = `id, key_hash, name, rate_limit, rate_window_seconds, is_active, documents_ingested, created_at, last_used_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestKey(row rowScanner, ingestKey *IngestKey) error {
	return row.Scan(
		&ingestKey.ID,
		&ingestKey.KeyHash,
		&ingestKey.Name,
		&ingestKey.RateLimit,
		&ingestKey.RateWindowSeconds,
		&ingestKey.IsActive,
		&ingestKey.DocumentsIngested,
		&ingestKey.CreatedAt,
		&ingestKey.LastUsedAt,
	)
}

// GetByKeyHash retrieves an active ingest key by its hash. A missing or
// revoked key returns nil without an error.
func (repository *PostgresIngestKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*IngestKey, error) {
	query := `SELECT ` + ingestKeyColumns + ` FROM ingest_keys WHERE key_hash = $1 AND is_active = true`

	ingestKey := &IngestKey{}
	err := scanIngestKey(repository.database.QueryRowContext(ctx, query, keyHash), ingestKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ingestKey, nil
}

// Create stores a new ingest key
func (repository *PostgresIngestKeyRepository) Create(ctx context.Context, name string, keyHash string, rateLimit int, rateWindowSeconds int) (*IngestKey, error) {
	query := `
		INSERT INTO ingest_keys (key_hash, name, rate_limit, rate_window_seconds)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + ingestKeyColumns

	ingestKey := &IngestKey{}
	row := repository.database.QueryRowContext(ctx, query, keyHash, name, rateLimit, rateWindowSeconds)
	if err := scanIngestKey(row, ingestKey); err != nil {
		return nil, err
	}

	return ingestKey, nil
}

// List retrieves all ingest keys, newest first
func (repository *PostgresIngestKeyRepository) List(ctx context.Context) ([]IngestKey, error) {
	query := `SELECT ` + ingestKeyColumns + ` FROM ingest_keys ORDER BY created_at DESC`

	rows, err := repository.database.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingestKeys := []IngestKey{}
	for rows.Next() {
		var ingestKey IngestKey
		if err := scanIngestKey(rows, &ingestKey); err != nil {
			return nil, err
		}
		ingestKeys = append(ingestKeys, ingestKey)
	}

	return ingestKeys, rows.Err()
}

// Revoke soft-deletes an ingest key by setting is_active to false
func (repository *PostgresIngestKeyRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	result, err := repository.database.ExecContext(ctx, `UPDATE ingest_keys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrIngestKeyNotFound
	}
	return nil
}

// Touch records one accepted ingestion request for the key
func (repository *PostgresIngestKeyRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE ingest_keys SET last_used_at = NOW(), documents_ingested = documents_ingested + 1 WHERE id = $1`
	_, err := repository.database.ExecContext(ctx, query, id)
	return err
}

// IncrementRequestCount increments the request count for a given time window
// and returns the new count. The upsert handles new and existing windows
// atomically.
func (repository *PostgresIngestKeyRepository) IncrementRequestCount(ctx context.Context, ingestKeyID uuid.UUID, windowStart time.Time) (int, error) {
	query := `
		INSERT INTO ingest_rate_windows (ingest_key_id, window_start, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (ingest_key_id, window_start)
		DO UPDATE SET request_count = ingest_rate_windows.request_count + 1
		RETURNING request_count
	`

	var requestCount int
	if err := repository.database.QueryRowContext(ctx, query, ingestKeyID, windowStart).Scan(&requestCount); err != nil {
		return 0, err
	}

	return requestCount, nil
}

var _ IngestKeyRepository = (*PostgresIngestKeyRepository)(nil)
