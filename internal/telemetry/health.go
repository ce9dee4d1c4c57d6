package telemetry

import (
	"sort"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

// inactiveEffectTime marks an effect entry that is no longer running
const inactiveEffectTime = -2

// bodyPart is one of the fixed anatomical regions and its default maximum
type bodyPart struct {
	key        string
	defaultMax float64
}

// bodyParts is the fixed region set, in display order
var bodyParts = []bodyPart{
	{key: "Head", defaultMax: 35},
	{key: "Chest", defaultMax: 85},
	{key: "Stomach", defaultMax: 70},
	{key: "LeftArm", defaultMax: 60},
	{key: "RightArm", defaultMax: 60},
	{key: "LeftLeg", defaultMax: 65},
	{key: "RightLeg", defaultMax: 65},
}

// extractHealth reads the seven regions of a profile Health section
func extractHealth(health Node, translator Translator) []models.BodyPartHealth {
	regions := make([]models.BodyPartHealth, 0, len(bodyParts))

	for _, part := range bodyParts {
		region := health.Get("BodyParts", part.key)

		maximum := region.Get("Health", "Maximum").FloatOr(0)
		if maximum == 0 {
			maximum = part.defaultMax
		}

		current := region.Get("Health", "Current").FloatOr(0)
		if maximum > 0 && current > maximum {
			current = maximum
		}

		regions = append(regions, models.BodyPartHealth{
			Part:          part.key,
			Name:          translator.Resolve(part.key),
			Current:       current,
			Maximum:       maximum,
			ActiveEffects: activeEffects(region.Get("Effects"), translator),
		})
	}
	return regions
}

// activeEffects lists the display names of running effects, sorted
func activeEffects(effects Node, translator Translator) []string {
	names := []string{}
	object, ok := effects.Map()
	if !ok {
		return names
	}

	for _, effectID := range effects.Keys() {
		details, ok := NewNode(object[effectID]).Map()
		if !ok {
			continue
		}
		// A null Time still marks a running effect; only a missing key does not
		remaining, present := details["Time"]
		if !present {
			continue
		}
		if value, ok := NewNode(remaining).Float(); ok && value == inactiveEffectTime {
			continue
		}
		names = append(names, translator.Resolve(effectID))
	}

	sort.Strings(names)
	return names
}

// extractVitals reads energy, hydration, temperature and poison
func extractVitals(health Node) models.Vitals {
	return models.Vitals{
		Energy:       health.Get("Energy", "Current").FloatOr(0),
		MaxEnergy:    health.Get("Energy", "Maximum").FloatOr(100),
		Hydration:    health.Get("Hydration", "Current").FloatOr(0),
		MaxHydration: health.Get("Hydration", "Maximum").FloatOr(100),
		Temperature:  health.Get("Temperature", "Current").FloatOr(37),
		Poison:       health.Get("Poison", "Current").FloatOr(0),
	}
}
