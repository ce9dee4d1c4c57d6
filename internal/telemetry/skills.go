package telemetry

import (
	"math"
	"sort"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

const (
	// commonSkillMaxProgress is the progress of a common skill at its last level
	commonSkillMaxProgress = 5100.0
	// masteringMaxProgress is the progress of a fully mastered weapon
	masteringMaxProgress = 100.0
)

// extractSkills returns the skills that changed during the session. Common
// skills count when they earned points; mastering skills report no session
// gain, so any progress counts.
func extractSkills(skills Node, translator Translator) []models.SkillChange {
	changed := []models.SkillChange{}

	for _, skill := range skills.Get("Common").Elements() {
		id, ok := skill.Get("Id").NonEmptyText()
		if !ok {
			continue
		}
		points := skill.Get("PointsEarnedDuringSession").FloatOr(0)
		if points <= 0 {
			continue
		}
		progress := skill.Get("Progress").FloatOr(0)
		changed = append(changed, models.SkillChange{
			ID:                 id,
			Name:               translator.Resolve(id),
			Type:               models.SkillCommon,
			Progress:           progress,
			PointsEarned:       points,
			ProgressPercentage: percentage(progress, commonSkillMaxProgress),
		})
	}

	for _, skill := range skills.Get("Mastering").Elements() {
		id, ok := skill.Get("Id").NonEmptyText()
		if !ok {
			continue
		}
		progress := skill.Get("Progress").FloatOr(0)
		if progress <= 0 {
			continue
		}
		changed = append(changed, models.SkillChange{
			ID:                 id,
			Name:               translator.Resolve(id),
			Type:               models.SkillMastering,
			Progress:           progress,
			ProgressPercentage: percentage(progress, masteringMaxProgress),
		})
	}

	sort.SliceStable(changed, func(i, j int) bool {
		left, right := changed[i], changed[j]
		if left.Type != right.Type {
			return left.Type < right.Type
		}
		if left.PointsEarned != right.PointsEarned {
			return left.PointsEarned > right.PointsEarned
		}
		if left.Progress != right.Progress {
			return left.Progress > right.Progress
		}
		return left.ID < right.ID
	})
	return changed
}

// percentage returns progress as a share of maximum, capped at 100 and rounded to two decimals
func percentage(progress float64, maximum float64) float64 {
	share := math.Min(progress/maximum*100, 100)
	return math.Round(share*100) / 100
}
