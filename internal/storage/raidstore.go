package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	fileTimeLayout    = "20060102_150405"
	documentExtension = ".json"
	endSuffix         = "_" + string(models.EventEnd) + documentExtension
	tempPattern       = ".incoming-*"

	// UnknownPlayer is the directory used when a nickname sanitizes to nothing
	UnknownPlayer = "UnknownPlayer"
	// UnknownSession is the session id used when none survives sanitizing
	UnknownSession = "unknown_session"
)

// ErrInvalidPath is returned by Open for paths that leave the data root
var ErrInvalidPath = errors.New("invalid raid document path")

// Document is a stored raid document read back from disk
type Document struct {
	RelativePath string
	Data         []byte
	ModTime      time.Time
}

// RaidStore persists session documents in one directory per player:
// {root}/{nickname}/{session}_{YYYYMMDD}_{HHMMSS}_{micro}_{kind}.json
type RaidStore struct {
	root    string
	ignored map[string]struct{}
	now     func() time.Time
}

// NewRaidStore creates a RaidStore rooted at root. Writes for nicknames on the
// ignore list are accepted and dropped; the comparison is case-insensitive.
// Only the raw nicknames are kept, so a player whose name merely sanitizes to
// the same directory as an ignored one is still listed.
func NewRaidStore(root string, ignoredNicknames []string) *RaidStore {
	ignored := make(map[string]struct{}, len(ignoredNicknames))
	for _, nickname := range ignoredNicknames {
		trimmed := strings.TrimSpace(nickname)
		if trimmed == "" {
			continue
		}
		ignored[strings.ToLower(trimmed)] = struct{}{}
	}

	return &RaidStore{
		root:    root,
		ignored: ignored,
		now:     time.Now,
	}
}

// Root returns the data root directory
func (store *RaidStore) Root() string {
	return store.root
}

// IsIgnored reports whether writes for nickname are dropped
func (store *RaidStore) IsIgnored(nickname string) bool {
	_, ok := store.ignored[strings.ToLower(strings.TrimSpace(nickname))]
	return ok
}

// Write stores document and returns its path relative to the root, using
// forward slashes. The file is written under a temporary name and renamed into
// place, so a concurrent listing never sees a partial document. Ignored
// nicknames return an empty path and no error.
func (store *RaidStore) Write(document any, nickname string, sessionID string, kind models.EventKind) (string, error) {
	if store.IsIgnored(nickname) {
		log.Debug().Str("nickname", nickname).Str("kind", string(kind)).Msg("Skipping document for ignored nickname")
		return "", nil
	}

	data, err := json.MarshalIndent(document, "", "    ")
	if err != nil {
		return "", &apierrors.StorageError{Op: "encode", Path: nickname, Err: err}
	}

	playerDir := SanitizeNickname(nickname)
	targetDir := filepath.Join(store.root, playerDir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", &apierrors.StorageError{Op: "mkdir", Path: targetDir, Err: err}
	}

	fileName := FileName(sessionID, kind, store.now())
	targetPath := filepath.Join(targetDir, fileName)

	if err := writeAtomically(targetDir, targetPath, data); err != nil {
		return "", err
	}

	relativePath := filepath.ToSlash(filepath.Join(playerDir, fileName))
	log.Info().
		Str("path", relativePath).
		Str("kind", string(kind)).
		Int("bytes", len(data)).
		Msg("Stored raid document")

	return relativePath, nil
}

// writeAtomically writes data to a temporary file in dir and renames it to targetPath
func writeAtomically(dir string, targetPath string, data []byte) error {
	tempFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return &apierrors.StorageError{Op: "create", Path: targetPath, Err: err}
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return &apierrors.StorageError{Op: "write", Path: targetPath, Err: err}
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return &apierrors.StorageError{Op: "sync", Path: targetPath, Err: err}
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return &apierrors.StorageError{Op: "close", Path: targetPath, Err: err}
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		os.Remove(tempPath)
		return &apierrors.StorageError{Op: "rename", Path: targetPath, Err: err}
	}
	return nil
}

// ListEndDocuments returns the relative paths of all session-end documents,
// ordered by player directory and file name. Directories of ignored nicknames
// are skipped. Unreadable directories do not stop the listing: the paths found
// so far are returned together with the joined errors.
func (store *RaidStore) ListEndDocuments() ([]string, error) {
	entries, err := os.ReadDir(store.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &apierrors.StorageError{Op: "list", Path: store.root, Err: err}
	}

	var paths []string
	var listErrors []error

	for _, entry := range entries {
		if !entry.IsDir() || store.IsIgnored(entry.Name()) {
			continue
		}

		playerDir := filepath.Join(store.root, entry.Name())
		files, err := os.ReadDir(playerDir)
		if err != nil {
			listErrors = append(listErrors, &apierrors.StorageError{Op: "list", Path: playerDir, Err: err})
			continue
		}

		for _, file := range files {
			if !file.Type().IsRegular() || !strings.HasSuffix(file.Name(), endSuffix) {
				continue
			}
			paths = append(paths, entry.Name()+"/"+file.Name())
		}
	}

	sort.Strings(paths)
	return paths, errors.Join(listErrors...)
}

// Open reads a stored document. Paths that are absolute, contain "..", or do
// not name a JSON document return ErrInvalidPath.
func (store *RaidStore) Open(relativePath string) (*Document, error) {
	localPath := filepath.FromSlash(relativePath)
	if relativePath == "" || !filepath.IsLocal(localPath) || !strings.HasSuffix(localPath, documentExtension) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, relativePath)
	}

	fullPath := filepath.Join(store.root, localPath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &apierrors.StorageError{Op: "stat", Path: relativePath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q is not a file", ErrInvalidPath, relativePath)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, &apierrors.StorageError{Op: "read", Path: relativePath, Err: err}
	}

	return &Document{
		RelativePath: filepath.ToSlash(localPath),
		Data:         data,
		ModTime:      info.ModTime(),
	}, nil
}

// FileName builds the stored file name for a session event at the given time (UTC)
func FileName(sessionID string, kind models.EventKind, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s_%s_%06d_%s%s",
		SanitizeSessionID(sessionID),
		at.Format(fileTimeLayout),
		at.Nanosecond()/int(time.Microsecond),
		kind,
		documentExtension,
	)
}

// SanitizeNickname replaces every non-alphanumeric character with "_"
func SanitizeNickname(nickname string) string {
	sanitized := strings.Map(func(character rune) rune {
		if unicode.IsLetter(character) || unicode.IsNumber(character) {
			return character
		}
		return '_'
	}, strings.TrimSpace(nickname))

	if sanitized == "" {
		return UnknownPlayer
	}
	return sanitized
}

// SanitizeSessionID keeps alphanumerics, "-" and "_" and replaces the rest with "_"
func SanitizeSessionID(sessionID string) string {
	sanitized := strings.Map(func(character rune) rune {
		if unicode.IsLetter(character) || unicode.IsNumber(character) || character == '-' || character == '_' {
			return character
		}
		return '_'
	}, strings.TrimSpace(sessionID))

	if sanitized == "" {
		return UnknownSession
	}
	return sanitized
}
