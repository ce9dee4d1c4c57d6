package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

// Outcome is the bucket a raid result is counted in
type Outcome int

const (
	// OutcomeOther is counted in neither the survived nor the death bucket
	OutcomeOther Outcome = iota
	OutcomeSurvived
	OutcomeDeath
)

var nonLetters = regexp.MustCompile(`[^a-z]`)

// ClassifyOutcome buckets a raw raid result. The result is lower-cased and
// stripped of non-letters, so "Missing In Action" and "MissingInAction" match.
func ClassifyOutcome(result models.RaidResult) Outcome {
	switch nonLetters.ReplaceAllString(strings.ToLower(string(result)), "") {
	case "survived", "runner":
		return OutcomeSurvived
	case "killed", "missinginaction":
		return OutcomeDeath
	default:
		return OutcomeOther
	}
}

// NewPlayerSummary returns the zero state of a player: no raids, all totals
// zero, no latest-known fields yet
func NewPlayerSummary(nickname string) *models.PlayerSummary {
	return &models.PlayerSummary{
		Nickname:       nickname,
		KillDeathRatio: "0",
		SurvivalRate:   "0.0%",
	}
}

// SortChronologically orders records oldest first. Records without a known
// timestamp sort before all others; ties are broken by source path.
func SortChronologically(records []*models.RaidRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return olderThan(records[i], records[j])
	})
}

// SortNewestFirst orders records newest first, the reverse of SortChronologically
func SortNewestFirst(records []*models.RaidRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return olderThan(records[j], records[i])
	})
}

func olderThan(left *models.RaidRecord, right *models.RaidRecord) bool {
	if left.TimestampKnown != right.TimestampKnown {
		return !left.TimestampKnown
	}
	if !left.Timestamp.Equal(right.Timestamp) {
		return left.Timestamp.Before(right.Timestamp)
	}
	return left.SourcePath < right.SourcePath
}

// Fold accumulates per-player summaries. Records must be in ascending
// timestamp order so the latest-known fields come from the newest raid.
// Records without a nickname are skipped.
func Fold(records []*models.RaidRecord) map[string]*models.PlayerSummary {
	players := make(map[string]*models.PlayerSummary)

	for _, record := range records {
		if record.Nickname == "" {
			continue
		}

		summary, ok := players[record.Nickname]
		if !ok {
			summary = NewPlayerSummary(record.Nickname)
			players[record.Nickname] = summary
		}

		summary.RaidCount++
		summary.TotalKills += record.Kills
		summary.TotalHeadshots += record.Headshots
		summary.TotalExperience += record.Experience.Total

		switch ClassifyOutcome(record.Result) {
		case OutcomeSurvived:
			summary.TotalSurvived++
		case OutcomeDeath:
			summary.TotalDeaths++
		}

		if record.LongestShotMeters > summary.LongestShotMeters {
			summary.LongestShotMeters = record.LongestShotMeters
		}

		summary.LatestLevel = record.Level
		summary.LatestSide = record.Side
		summary.LatestGameEdition = record.GameEdition
	}

	for _, summary := range players {
		summary.KillDeathRatio = KillDeathRatio(summary.TotalKills, summary.TotalDeaths)
		summary.SurvivalRate = SurvivalRate(summary.TotalSurvived, summary.RaidCount)
	}

	return players
}

// KillDeathRatio formats kills/deaths with two decimals, or the kill count
// itself when the player never died
func KillDeathRatio(kills int, deaths int) string {
	if deaths == 0 {
		return fmt.Sprintf("%d", kills)
	}
	return fmt.Sprintf("%.2f", float64(kills)/float64(deaths))
}

// SurvivalRate formats survived/raids as a percentage with one decimal
func SurvivalRate(survived int, raids int) string {
	if raids == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(survived)/float64(raids)*100)
}

// SortedNicknames returns the player nicknames ordered case-insensitively
func SortedNicknames(players map[string]*models.PlayerSummary) []string {
	nicknames := make([]string, 0, len(players))
	for nickname := range players {
		nicknames = append(nicknames, nickname)
	}
	sort.Slice(nicknames, func(i, j int) bool {
		left, right := strings.ToLower(nicknames[i]), strings.ToLower(nicknames[j])
		if left != right {
			return left < right
		}
		return nicknames[i] < nicknames[j]
	})
	return nicknames
}
