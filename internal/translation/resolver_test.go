package translation

import (
	"os"
	"path/filepath"
	"testing"
)

// TestResolveUnknownIdentifier tests that an unknown identifier resolves to itself
func TestResolveUnknownIdentifier(t *testing.T) {
	resolver := NewResolver(EmptyTable())

	if result := resolver.Resolve("zzz_unknown"); result != "zzz_unknown" {
		t.Errorf("Expected 'zzz_unknown', got '%s'", result)
	}
}

// TestResolveEmptyIdentifier tests that only an empty identifier resolves to an empty string
func TestResolveEmptyIdentifier(t *testing.T) {
	resolver := NewResolver(EmptyTable())

	if result := resolver.Resolve(""); result != "" {
		t.Errorf("Expected empty string, got '%s'", result)
	}
}

// TestResolvePrefersShortName tests the ShortName > name > Name > verbatim order
func TestResolvePrefersShortName(t *testing.T) {
	testCases := []struct {
		name     string
		entries  map[string]string
		expected string
	}{
		{
			name:     "short name wins over full name",
			entries:  map[string]string{"5447a9cd ShortName": "M4A1", "5447a9cd Name": "Colt M4A1 5.56x45 assault rifle"},
			expected: "M4A1",
		},
		{
			name:     "lower-case name before capitalised name",
			entries:  map[string]string{"5447a9cd name": "Achievement", "5447a9cd Name": "Full"},
			expected: "Achievement",
		},
		{
			name:     "capitalised name before verbatim key",
			entries:  map[string]string{"5447a9cd Name": "Full", "5447a9cd": "Verbatim"},
			expected: "Full",
		},
		{
			name:     "verbatim key before well-known names",
			entries:  map[string]string{"5447a9cd": "Verbatim"},
			expected: "Verbatim",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resolver := NewResolver(NewTable(testCase.entries))
			if result := resolver.Resolve("5447a9cd"); result != testCase.expected {
				t.Errorf("Expected '%s', got '%s'", testCase.expected, result)
			}
		})
	}
}

// TestResolveWellKnownFallback tests that domain constants resolve without a table entry
func TestResolveWellKnownFallback(t *testing.T) {
	resolver := NewResolver(EmptyTable())

	if result := resolver.Resolve("LeftLeg"); result != "Left leg" {
		t.Errorf("Expected 'Left leg', got '%s'", result)
	}
	if result := resolver.Resolve("pmcBEAR"); result != "PMC BEAR" {
		t.Errorf("Expected 'PMC BEAR', got '%s'", result)
	}
}

// TestResolveTableOverridesWellKnown tests that the table wins over the built-in names
func TestResolveTableOverridesWellKnown(t *testing.T) {
	resolver := NewResolver(NewTable(map[string]string{"Head": "Głowa"}))

	if result := resolver.Resolve("Head"); result != "Głowa" {
		t.Errorf("Expected 'Głowa', got '%s'", result)
	}
}

// TestResolvePathJoinedKey tests that the joined lower-case key is tried first
func TestResolvePathJoinedKey(t *testing.T) {
	resolver := NewResolver(NewTable(map[string]string{
		"exp_expkill": "Experience for kills",
		"ExpKill":     "Kills",
	}))

	if result := resolver.ResolvePath([]string{"Exp", "ExpKill"}); result != "Experience for kills" {
		t.Errorf("Expected 'Experience for kills', got '%s'", result)
	}
}

// TestResolvePathPerElement tests per-element resolution when the joined key is absent
func TestResolvePathPerElement(t *testing.T) {
	resolver := NewResolver(NewTable(map[string]string{
		"BodyPartDamage": "Damage",
	}))

	result := resolver.ResolvePath([]string{"BodyPartDamage", "Head"})
	if result != "Damage - Head" {
		t.Errorf("Expected 'Damage - Head', got '%s'", result)
	}
}

// TestResolvePathNothingKnown tests that an unknown path is rendered as text
func TestResolvePathNothingKnown(t *testing.T) {
	resolver := NewResolver(EmptyTable())

	if result := resolver.ResolvePath([]string{"Foo", "Bar"}); result != "Foo Bar" {
		t.Errorf("Expected 'Foo Bar', got '%s'", result)
	}
	if result := resolver.ResolvePath([]string{"", ""}); result != "" {
		t.Errorf("Expected empty rendering for blank path, got '%s'", result)
	}
	if result := resolver.ResolvePath(nil); result != "" {
		t.Errorf("Expected empty string for nil path, got '%s'", result)
	}
}

// TestNewTableCopiesEntries tests that the table is not affected by later map changes
func TestNewTableCopiesEntries(t *testing.T) {
	entries := map[string]string{"a": "A"}
	table := NewTable(entries)
	entries["a"] = "changed"

	if value, _ := table.Lookup("a"); value != "A" {
		t.Errorf("Expected 'A', got '%s'", value)
	}
}

// TestLoadTable tests loading a language table from disk
func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	content := `{"Head": "Głowa", "5447a9cd ShortName": "M4A1"}`
	if err := os.WriteFile(filepath.Join(dir, "pl.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	table, err := LoadTable(dir, "pl")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", table.Len())
	}
}

// TestLoadTableMissingFile tests that a missing table is reported
func TestLoadTableMissingFile(t *testing.T) {
	if _, err := LoadTable(t.TempDir(), "pl"); err == nil {
		t.Error("Expected error for missing table")
	}
}

// TestLoadAchievements tests catalog loading and image file resolution
func TestLoadAchievements(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"id": "ach1", "imageUrl": "/files/achievement/Standard_01.png"},
		{"id": "ach2", "imageUrl": ""},
		{"imageUrl": "/files/achievement/orphan.png"}
	]`
	if err := os.WriteFile(filepath.Join(dir, AchievementsFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	catalog, err := LoadAchievements(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if catalog.Len() != 2 {
		t.Errorf("Expected 2 definitions, got %d", catalog.Len())
	}
	if image := catalog.ImageFile("ach1"); image != "Standard_01.png" {
		t.Errorf("Expected 'Standard_01.png', got '%s'", image)
	}
	if image := catalog.ImageFile("ach2"); image != "ach2.png" {
		t.Errorf("Expected 'ach2.png', got '%s'", image)
	}
	if image := catalog.ImageFile("missing"); image != "missing.png" {
		t.Errorf("Expected 'missing.png', got '%s'", image)
	}
}
