package telemetry

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

const (
	filenameDateLayout = "20060102150405"
	documentExtension  = ".json"
)

// knownKinds is ordered so that longer suffixes are stripped first
var knownKinds = []models.EventKind{models.EventConnect, models.EventStart, models.EventEnd}

// SessionFileID returns the file name of a stored document without its extension
func SessionFileID(relativePath string) string {
	return strings.TrimSuffix(filepath.Base(relativePath), documentExtension)
}

// RecoverTimestamp derives the event time of a stored document. The name
// written by the raid store is {session}_{YYYYMMDD}_{HHMMSS}_{micro}_{kind}.json;
// the date and time are read counting back from the kind so session ids
// containing underscores still parse. Names from older writers that put the
// date and time right after a plain session id are accepted too. When the name
// carries no usable timestamp the file modification time is used, and when that
// is unknown the zero time is returned with ok=false so the record sorts oldest.
func RecoverTimestamp(relativePath string, modTime time.Time) (time.Time, bool) {
	if timestamp, ok := timestampFromName(SessionFileID(relativePath)); ok {
		return timestamp, true
	}
	if !modTime.IsZero() {
		return modTime.UTC(), true
	}
	return time.Time{}, false
}

// timestampFromName parses the date, time and microsecond tokens of a stored name
func timestampFromName(name string) (time.Time, bool) {
	stem, ok := stripKind(name)
	if ok {
		tokens := strings.Split(stem, "_")
		if len(tokens) >= 4 {
			count := len(tokens)
			if timestamp, ok := parseTokens(tokens[count-3], tokens[count-2], tokens[count-1]); ok {
				return timestamp, true
			}
		}
	}

	tokens := strings.Split(name, "_")
	if len(tokens) >= 4 {
		return parseTokens(tokens[1], tokens[2], "")
	}
	return time.Time{}, false
}

// stripKind removes a known event kind suffix
func stripKind(name string) (string, bool) {
	for _, kind := range knownKinds {
		suffix := "_" + string(kind)
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix), true
		}
	}
	return name, false
}

// parseTokens validates and combines the date, time and optional microsecond tokens
func parseTokens(dateToken string, timeToken string, microToken string) (time.Time, bool) {
	if len(dateToken) != 8 || len(timeToken) != 6 || !allDigits(dateToken) || !allDigits(timeToken) {
		return time.Time{}, false
	}

	timestamp, err := time.ParseInLocation(filenameDateLayout, dateToken+timeToken, time.UTC)
	if err != nil {
		return time.Time{}, false
	}

	if microToken != "" && allDigits(microToken) {
		if micros, err := strconv.Atoi(microToken); err == nil && micros < 1_000_000 {
			timestamp = timestamp.Add(time.Duration(micros) * time.Microsecond)
		}
	}
	return timestamp, true
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, character := range value {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
