package telemetry

import (
	"sort"

	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

// ItemIDFields lists the field names an item id may be stored under, in lookup order
var ItemIDFields = []string{"_tpl", "ItemId", "itemId", "TemplateId"}

// DefaultCountField is the plain count field used when no stack size is present
const DefaultCountField = "count"

// Translator resolves identifiers to display strings
type Translator interface {
	Resolve(identifier string) string
	ResolvePath(path []string) string
}

// ConsolidateItems merges item references that share an id, summing their
// counts. collection may be a list or an object whose values are the items.
// The result is sorted by display name.
func ConsolidateItems(collection Node, idFields []string, countField string, translator Translator) []models.ItemEntry {
	counts := make(map[string]int)
	var order []string

	for _, item := range collection.Elements() {
		if _, ok := item.Map(); !ok {
			continue
		}

		id, ok := itemID(item, idFields)
		if !ok {
			continue
		}

		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id] += itemCount(item, countField)
	}

	entries := make([]models.ItemEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, models.ItemEntry{
			ID:    id,
			Name:  translator.Resolve(id),
			Count: counts[id],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// itemID reads the id from the first candidate field that holds one
func itemID(item Node, idFields []string) (string, bool) {
	steps := make([]option[string], 0, len(idFields))
	for _, field := range idFields {
		steps = append(steps, item.Get(field).NonEmptyText)
	}
	return firstOf(steps...)()
}

// itemCount prefers the nested stack size, then the plain count field.
// A missing or non-numeric count is 1.
func itemCount(item Node, countField string) int {
	stackSize := item.Get("upd", "StackObjectsCount")
	if stackSize.Present() {
		return asInt(stackSize.Int).or(1)
	}
	return asInt(item.Get(countField).Int).or(1)
}
