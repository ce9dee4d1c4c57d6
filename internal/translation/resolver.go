package translation

import "strings"

// PathSeparator joins the per-element translations of a key path
const PathSeparator = " - "

// wellKnownNames is consulted after the table and before giving up.
// It covers factions, bot roles, damage types and anatomical regions.
var wellKnownNames = map[string]string{
	"pmcBEAR": "PMC BEAR", "pmcUSEC": "PMC USEC", "sptBear": "SPT BEAR", "sptUsec": "SPT USEC",
	"usec": "USEC", "bear": "BEAR", "savage": "Scav",
	"Usec": "USEC", "Bear": "BEAR", "Savage": "Scav",
	"assault": "Scav (assault)", "marksman": "Scav (marksman)", "exUsec": "Rogue",
	"bossBully": "Reshala", "bossKilla": "Killa", "bossTagilla": "Tagilla", "bossSanitar": "Sanitar",
	"bossGluhar": "Glukhar", "bossKnight": "Knight", "bossBirdeye": "Birdeye", "bossBigPipe": "Big Pipe",
	"followerBully": "Reshala guard", "followerKilla": "Killa guard", "followerTagilla": "Tagilla guard",
	"followerSanitar": "Sanitar guard", "followerGluharAssault": "Glukhar guard (assault)",
	"followerGluharScout": "Glukhar guard (scout)", "followerGluharSecurity": "Glukhar guard (security)",
	"followerGluharSnipe": "Glukhar guard (sniper)", "followerKojaniy": "Shturman", "followerZryachiy": "Zryachiy",
	"sectantPriest": "Cultist priest", "sectantWarrior": "Cultist warrior",
	"gifter": "Santa Claus",
	"Bullet": "Bullet", "Explosion": "Explosion", "Melee": "Melee", "Fall": "Fall",
	"Structural": "Structural", "HeavyBleeding": "Heavy bleeding", "LightBleeding": "Light bleeding",
	"Poison": "Poison", "Stimulator": "Stimulator", "Unknown": "Unknown", "Undefined": "Undefined",
	"Head": "Head", "Chest": "Thorax", "Stomach": "Stomach",
	"LeftArm": "Left arm", "RightArm": "Right arm",
	"LeftLeg": "Left leg", "RightLeg": "Right leg",
}

// Resolver turns opaque identifiers into display strings. It never fails:
// an identifier nothing knows about resolves to itself.
type Resolver struct {
	table *Table
}

// NewResolver creates a Resolver over an immutable table
func NewResolver(table *Table) *Resolver {
	if table == nil {
		table = EmptyTable()
	}
	return &Resolver{table: table}
}

// Table returns the table the resolver reads from
func (resolver *Resolver) Table() *Table {
	return resolver.table
}

// Resolve returns the display string for a single identifier.
// Lookup order: "<id> ShortName", "<id> name", "<id> Name", the id itself,
// the well-known names, and finally the id unchanged.
func (resolver *Resolver) Resolve(identifier string) string {
	if identifier == "" {
		return ""
	}
	if name, ok := resolver.lookup(identifier); ok {
		return name
	}
	return identifier
}

// ResolvePath returns the display string for a key path such as ["Exp", "ExpKill"].
// The lower-cased, underscore-joined path is tried as a single key first; otherwise
// each element is resolved on its own and the parts are joined. When no element is
// known the path is rendered as plain text.
func (resolver *Resolver) ResolvePath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	joinedKey := strings.ToLower(strings.Join(path, "_"))
	if name, ok := resolver.table.Lookup(joinedKey); ok {
		return name
	}

	parts := make([]string, 0, len(path))
	anyKnown := false
	for _, element := range path {
		if element == "" {
			continue
		}
		if name, ok := resolver.lookup(element); ok {
			anyKnown = true
			parts = append(parts, name)
			continue
		}
		parts = append(parts, element)
	}

	if anyKnown {
		return strings.Join(parts, PathSeparator)
	}

	// Nothing known: plain rendering, or the last element alone when every part was blank
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return path[len(path)-1]
}

// lookup runs every lookup stage except the final identity fallback
func (resolver *Resolver) lookup(identifier string) (string, bool) {
	candidates := []string{
		identifier + " ShortName",
		identifier + " name",
		identifier + " Name",
		identifier,
	}
	for _, key := range candidates {
		if name, ok := resolver.table.Lookup(key); ok && name != "" {
			return name, true
		}
	}
	if name, ok := wellKnownNames[identifier]; ok {
		return name, true
	}
	return "", false
}
