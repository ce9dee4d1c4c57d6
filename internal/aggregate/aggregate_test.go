package aggregate

import (
	"testing"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

func record(nickname string, minute int, result models.RaidResult, kills int) *models.RaidRecord {
	return &models.RaidRecord{
		Nickname:       nickname,
		Timestamp:      time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC),
		TimestampKnown: true,
		Result:         result,
		Kills:          kills,
		SourcePath:     nickname + "/raid.json",
	}
}

// TestClassifyOutcome tests outcome bucketing including normalization
func TestClassifyOutcome(t *testing.T) {
	testCases := []struct {
		result   models.RaidResult
		expected Outcome
	}{
		{"Survived", OutcomeSurvived},
		{"runner", OutcomeSurvived},
		{"Killed", OutcomeDeath},
		{"MissingInAction", OutcomeDeath},
		{"Missing In Action", OutcomeDeath},
		{"Left", OutcomeOther},
		{"", OutcomeOther},
	}

	for _, testCase := range testCases {
		if outcome := ClassifyOutcome(testCase.result); outcome != testCase.expected {
			t.Errorf("Expected %d for '%s', got %d", testCase.expected, testCase.result, outcome)
		}
	}
}

// TestFoldTotals tests that totals match the per-record sums and bucket invariants hold
func TestFoldTotals(t *testing.T) {
	records := []*models.RaidRecord{
		record("Alice", 1, models.ResultSurvived, 3),
		record("Alice", 2, models.ResultKilled, 1),
		record("Alice", 3, "Left", 2),
		record("Bob", 4, models.ResultMissingInAction, 0),
	}
	records[0].Headshots = 2
	records[0].Experience.Total = 1000
	records[1].Experience.Total = 250

	players := Fold(records)

	alice, ok := players["Alice"]
	if !ok {
		t.Fatal("Expected summary for Alice")
	}
	if alice.RaidCount != 3 {
		t.Errorf("Expected 3 raids, got %d", alice.RaidCount)
	}
	if alice.TotalKills != 6 {
		t.Errorf("Expected 6 kills, got %d", alice.TotalKills)
	}
	if alice.TotalHeadshots != 2 {
		t.Errorf("Expected 2 headshots, got %d", alice.TotalHeadshots)
	}
	if alice.TotalExperience != 1250 {
		t.Errorf("Expected 1250 experience, got %d", alice.TotalExperience)
	}
	if alice.TotalSurvived != 1 || alice.TotalDeaths != 1 {
		t.Errorf("Expected 1 survived and 1 death, got %d and %d", alice.TotalSurvived, alice.TotalDeaths)
	}
	if alice.TotalSurvived+alice.TotalDeaths > alice.RaidCount {
		t.Error("Expected survived + deaths to be at most the raid count")
	}
	if alice.KillDeathRatio != "6.00" {
		t.Errorf("Expected KD '6.00', got '%s'", alice.KillDeathRatio)
	}
	if alice.SurvivalRate != "33.3%" {
		t.Errorf("Expected survival rate '33.3%%', got '%s'", alice.SurvivalRate)
	}

	bob := players["Bob"]
	if bob.KillDeathRatio != "0.00" {
		t.Errorf("Expected KD '0.00', got '%s'", bob.KillDeathRatio)
	}
}

// TestFoldLatestFieldsFollowTime tests that latest-known fields come from the newest raid
func TestFoldLatestFieldsFollowTime(t *testing.T) {
	older := record("Alice", 1, models.ResultSurvived, 0)
	older.Level = 10
	older.Side = "Usec"
	older.LongestShotMeters = 150
	newer := record("Alice", 5, models.ResultSurvived, 0)
	newer.Level = 12
	newer.Side = "Bear"
	newer.GameEdition = "edge_of_darkness"
	newer.LongestShotMeters = 80

	// Deliberately shuffled input, sorted before folding
	records := []*models.RaidRecord{newer, older}
	SortChronologically(records)
	alice := Fold(records)["Alice"]

	if alice.LatestLevel != 12 || alice.LatestSide != "Bear" || alice.LatestGameEdition != "edge_of_darkness" {
		t.Errorf("Expected latest fields from the newest raid, got level %d side %s edition %s",
			alice.LatestLevel, alice.LatestSide, alice.LatestGameEdition)
	}
	if alice.LongestShotMeters != 150 {
		t.Errorf("Expected best-ever shot 150, got %f", alice.LongestShotMeters)
	}
}

// TestFoldSkipsEmptyNickname tests that records without a nickname are not summarized
func TestFoldSkipsEmptyNickname(t *testing.T) {
	players := Fold([]*models.RaidRecord{record("", 1, models.ResultSurvived, 4)})

	if len(players) != 0 {
		t.Errorf("Expected no players, got %d", len(players))
	}
}

// TestKillDeathRatioWithoutDeaths tests the kill count is shown when there are no deaths
func TestKillDeathRatioWithoutDeaths(t *testing.T) {
	if ratio := KillDeathRatio(7, 0); ratio != "7" {
		t.Errorf("Expected '7', got '%s'", ratio)
	}
	if ratio := KillDeathRatio(5, 2); ratio != "2.50" {
		t.Errorf("Expected '2.50', got '%s'", ratio)
	}
}

// TestSurvivalRateWithoutRaids tests the zero-raid rendering
func TestSurvivalRateWithoutRaids(t *testing.T) {
	if rate := SurvivalRate(0, 0); rate != "0.0%" {
		t.Errorf("Expected '0.0%%', got '%s'", rate)
	}
}

// TestSortUnknownTimestampOldest tests that records without a timestamp sort first
func TestSortUnknownTimestampOldest(t *testing.T) {
	known := record("Alice", 1, models.ResultSurvived, 0)
	unknown := &models.RaidRecord{Nickname: "Alice", SourcePath: "Alice/zzz.json"}

	records := []*models.RaidRecord{known, unknown}
	SortChronologically(records)
	if records[0] != unknown {
		t.Error("Expected record without timestamp to sort oldest")
	}

	SortNewestFirst(records)
	if records[0] != known {
		t.Error("Expected record with timestamp to sort newest")
	}
}

// TestSortedNicknames tests case-insensitive ordering
func TestSortedNicknames(t *testing.T) {
	players := map[string]*models.PlayerSummary{
		"bob":   NewPlayerSummary("bob"),
		"Alice": NewPlayerSummary("Alice"),
		"carl":  NewPlayerSummary("carl"),
	}

	nicknames := SortedNicknames(players)
	expected := []string{"Alice", "bob", "carl"}
	for index := range expected {
		if nicknames[index] != expected[index] {
			t.Errorf("Expected '%s' at %d, got '%s'", expected[index], index, nicknames[index])
		}
	}
}
