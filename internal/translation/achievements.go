package translation

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/goccy/go-json"
)

// AchievementsFileName is the catalog file stored next to the language tables
const AchievementsFileName = "achievements.json"

// AchievementDefinition is one entry of the achievements catalog
type AchievementDefinition struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Rarity   string `json:"rarity,omitempty"`
	Side     string `json:"side,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// AchievementCatalog indexes achievement definitions by id
type AchievementCatalog struct {
	definitions map[string]AchievementDefinition
}

// NewAchievementCatalog indexes the given definitions, skipping entries without an id
func NewAchievementCatalog(definitions []AchievementDefinition) *AchievementCatalog {
	indexed := make(map[string]AchievementDefinition, len(definitions))
	for _, definition := range definitions {
		if definition.ID == "" {
			continue
		}
		indexed[definition.ID] = definition
	}
	return &AchievementCatalog{definitions: indexed}
}

// LoadAchievements reads the achievements catalog from dir
func LoadAchievements(dir string) (*AchievementCatalog, error) {
	catalogPath := filepath.Join(dir, AchievementsFileName)

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read achievements catalog %s: %w", catalogPath, err)
	}

	var definitions []AchievementDefinition
	if err := json.Unmarshal(data, &definitions); err != nil {
		return nil, fmt.Errorf("failed to parse achievements catalog %s: %w", catalogPath, err)
	}

	return NewAchievementCatalog(definitions), nil
}

// Get returns the definition for an achievement id
func (catalog *AchievementCatalog) Get(id string) (AchievementDefinition, bool) {
	if catalog == nil {
		return AchievementDefinition{}, false
	}
	definition, ok := catalog.definitions[id]
	return definition, ok
}

// ImageFile returns the image file name for an achievement: the base name of the
// catalog image URL, or "<id>.png" when the catalog has none
func (catalog *AchievementCatalog) ImageFile(id string) string {
	if definition, ok := catalog.Get(id); ok && definition.ImageURL != "" {
		if base := path.Base(definition.ImageURL); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return id + ".png"
}

// Len returns the number of indexed definitions
func (catalog *AchievementCatalog) Len() int {
	if catalog == nil {
		return 0
	}
	return len(catalog.definitions)
}
