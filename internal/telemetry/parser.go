package telemetry

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/aggregate"
	apierrors "github.com/OPGLOL/opgl-raid-tracker/internal/errors"
	"github.com/OPGLOL/opgl-raid-tracker/internal/models"
)

// longestShotDivisor converts the LongestKillShot counter to meters
const longestShotDivisor = 10.0

// Counter key shapes. Documents from different game versions store the
// experience counters either at the top level or under "Exp".
var (
	expKillKeys       = []KeyPath{Path("ExpKill"), Path("Exp", "ExpKill")}
	expLootingKeys    = []KeyPath{Path("ExpLooting"), Path("Exp", "ExpLooting")}
	expExitStatusKeys = []KeyPath{Path("Exp", "ExpExitStatus"), Path("ExpExitStatus")}
	longestShotKeys   = []KeyPath{Path("LongestKillShot")}
	damageDealtKeys   = []KeyPath{Path("CauseBodyDamage")}
	distanceKeys      = []KeyPath{Path("Pedometer")}
	bloodLossKeys     = []KeyPath{Path("BloodLoss")}
)

// AchievementImages resolves the image file shown for an achievement
type AchievementImages interface {
	ImageFile(id string) string
}

// Source identifies where a document was read from
type Source struct {
	RelativePath string
	ModTime      time.Time
}

// Parser turns raw session documents into normalized records. It holds no
// mutable state and may be shared between goroutines.
type Parser struct {
	translator   Translator
	achievements AchievementImages
}

// NewParser creates a new Parser instance
func NewParser(translator Translator, achievements AchievementImages) *Parser {
	return &Parser{
		translator:   translator,
		achievements: achievements,
	}
}

// ParseEnd normalizes a session-end document. It returns a *StructuralError
// when the results section or its profile is missing; every other missing or
// malformed field falls back to a default.
func (parser *Parser) ParseEnd(document Node, source Source) (*models.RaidRecord, error) {
	results, ok := firstOf(
		document.Get("request", "results").NonEmptyMap,
		document.Get("results").NonEmptyMap,
	)()
	if !ok {
		return nil, &apierrors.StructuralError{Path: source.RelativePath, Section: "request.results"}
	}

	profile, ok := results.Get("profile").NonEmptyMap()
	if !ok {
		return nil, &apierrors.StructuralError{Path: source.RelativePath, Section: "request.results.profile"}
	}

	info := profile.Get("Info")
	stats := profile.Get("Stats", "Eft")
	sessionCounters := ParseCounters(stats.Get("SessionCounters", "Items"))
	overallCounters := ParseCounters(stats.Get("OverallCounters", "Items"))

	timestamp, timestampKnown := RecoverTimestamp(source.RelativePath, source.ModTime)
	result := models.RaidResult(results.Get("result").TextOr("Unknown"))
	side := info.Get("Side").TextOr("")
	location := firstOf(info.Get("EntryPoint").NonEmptyText, results.Get("location").NonEmptyText).or("")

	record := &models.RaidRecord{
		SessionFileID:  SessionFileID(source.RelativePath),
		SessionID:      firstOf(document.Get("sessionId").NonEmptyText, profile.Get("_id").NonEmptyText).or(""),
		Timestamp:      timestamp,
		TimestampKnown: timestampKnown,
		Nickname:       info.Get("Nickname").TextOr(""),
		ProfileID:      profile.Get("_id").TextOr(""),
		AccountID:      profile.Get("aid").TextOr(""),

		Level:             int(info.Get("Level").IntOr(0)),
		Side:              side,
		SideName:          parser.translator.Resolve(side),
		GameEdition:       info.Get("GameVersion").TextOr(""),
		ProfileExperience: info.Get("Experience").IntOr(0),
		RegistrationDate:  info.Get("RegistrationDate").IntOr(0),

		Result:          result,
		ResultName:      parser.translator.Resolve(string(result)),
		Location:        location,
		LocationName:    parser.translator.Resolve(location),
		DurationSeconds: asInt(firstOf(results.Get("playTime").Int, stats.Get("TotalInGameTime").Int)).or(0),
		SurvivorClass:   parser.translator.Resolve(stats.Get("SurvivorClass").TextOr("")),

		Experience:           parser.experience(stats, sessionCounters, overallCounters),
		LongestShotMeters:    float64(sessionOrOverall(sessionCounters, overallCounters, longestShotKeys)) / longestShotDivisor,
		DamageDealt:          sessionOrOverall(sessionCounters, overallCounters, damageDealtKeys),
		DistanceTraveled:     sessionOrOverall(sessionCounters, overallCounters, distanceKeys),
		BloodLoss:            sessionOrOverall(sessionCounters, overallCounters, bloodLossKeys),
		DamageReceivedByPart: parser.damageReceived(stats.Get("DamageHistory", "BodyParts")),
		SessionCounters:      parser.counterDisplay(sessionCounters),

		Victims:          parser.victims(stats.Get("Victims")),
		FoundInRaidItems: ConsolidateItems(stats.Get("FoundInRaidItems"), ItemIDFields, DefaultCountField, parser.translator),
		DroppedItems:     ConsolidateItems(stats.Get("DroppedItems"), ItemIDFields, DefaultCountField, parser.translator),
		QuestItems:       ConsolidateItems(stats.Get("CarriedQuestItems"), ItemIDFields, DefaultCountField, parser.translator),
		TransferItems:    ConsolidateItems(results.Get("transferItems"), ItemIDFields, DefaultCountField, parser.translator),
		LostInsuredItems: ConsolidateItems(results.Get("lostInsuredItems"), ItemIDFields, DefaultCountField, parser.translator),
		Skills:           extractSkills(profile.Get("Skills"), parser.translator),
		Achievements:     parser.achievementList(profile.Get("Achievements")),
		KillerProfileID:  results.Get("killerId").TextOr(""),
		KillerAccountID:  results.Get("killerAid").TextOr(""),

		Health: extractHealth(profile.Get("Health"), parser.translator),
		Vitals: extractVitals(profile.Get("Health")),

		SourcePath: source.RelativePath,
	}

	for _, victim := range record.Victims {
		if strings.EqualFold(victim.BodyPart, "head") {
			record.Headshots++
		}
	}
	record.Kills = len(record.Victims)

	if aggregate.ClassifyOutcome(result) == aggregate.OutcomeSurvived {
		record.ExitName = parser.translator.Resolve(results.Get("exitName").TextOr(""))
	}

	if strings.EqualFold(string(result), string(models.ResultKilled)) {
		record.Killer = parser.killer(stats)
	}

	return record, nil
}

// ParseStart normalizes a session-start document
func (parser *Parser) ParseStart(document Node) (*models.RaidStart, error) {
	request, ok := document.Get("request").NonEmptyMap()
	if !ok {
		return nil, &apierrors.StructuralError{Section: "request"}
	}

	info := request.Get("playerProfile", "Info")
	location := request.Get("location").TextOr("unknown")
	side := info.Get("Side").TextOr("")

	return &models.RaidStart{
		SessionID:    document.Get("sessionId").TextOr(""),
		Nickname:     info.Get("Nickname").TextOr(""),
		Level:        int(info.Get("Level").IntOr(0)),
		Side:         side,
		Location:     location,
		LocationName: parser.translator.Resolve(location),
		TimeVariant:  request.Get("timeAndWeatherSettings", "timeVariant").TextOr("unknown"),
	}, nil
}

// experience sums the kill, looting and exit-status counters. When the session
// counter list is empty the lifetime counters are used instead.
func (parser *Parser) experience(stats Node, sessionCounters []CounterEntry, overallCounters []CounterEntry) models.ExperienceBreakdown {
	counters := sessionCounters
	fromOverall := false
	if len(sessionCounters) == 0 {
		counters = overallCounters
		fromOverall = true
	}

	breakdown := models.ExperienceBreakdown{
		Kill:              counter(counters, expKillKeys...).or(0),
		Looting:           counter(counters, expLootingKeys...).or(0),
		ExitStatus:        counter(counters, expExitStatusKeys...).or(0),
		FromOverall:       fromOverall,
		ReportedSession:   stats.Get("TotalSessionExperience").IntOr(0),
		SessionMultiplier: stats.Get("SessionExperienceMult").FloatOr(1),
		BonusMultiplier:   stats.Get("ExperienceBonusMult").FloatOr(1),
	}
	breakdown.Total = breakdown.Kill + breakdown.Looting + breakdown.ExitStatus
	return breakdown
}

// sessionOrOverall reads a counter from the session list, then the lifetime list
func sessionOrOverall(sessionCounters []CounterEntry, overallCounters []CounterEntry, keyPaths []KeyPath) int64 {
	return firstOf(counter(sessionCounters, keyPaths...), counter(overallCounters, keyPaths...)).or(0)
}

// counterDisplay renders every coercible session counter
func (parser *Parser) counterDisplay(entries []CounterEntry) []models.CounterDisplay {
	display := []models.CounterDisplay{}
	for _, entry := range entries {
		value, ok := entry.Value.Int()
		if !ok {
			continue
		}
		display = append(display, models.CounterDisplay{
			Key:   parser.translator.ResolvePath(entry.Key),
			Value: value,
		})
	}
	return display
}

// damageReceived sums the damage taken per body part, rounded to one decimal
func (parser *Parser) damageReceived(bodyParts Node) map[string]float64 {
	received := make(map[string]float64)
	object, ok := bodyParts.Map()
	if !ok {
		return received
	}

	for _, part := range bodyParts.Keys() {
		total := 0.0
		for _, hit := range NewNode(object[part]).Elements() {
			total += hit.Get("Amount").FloatOr(0)
		}
		if total > 0 {
			received[parser.translator.Resolve(part)] += math.Round(total*10) / 10
		}
	}
	return received
}

// victims reads the kill list
func (parser *Parser) victims(list Node) []models.Victim {
	victims := []models.Victim{}
	for _, entry := range list.Elements() {
		if _, ok := entry.Map(); !ok {
			continue
		}

		role := entry.Get("Role").TextOr("SCAV")
		bodyPart := entry.Get("BodyPart").TextOr("Unknown")
		weaponID := firstToken(entry.Get("Weapon").TextOr(""))

		victim := models.Victim{
			Name:           entry.Get("Name").TextOr(""),
			Level:          int(entry.Get("Level").IntOr(1)),
			Role:           role,
			RoleName:       parser.translator.Resolve(role),
			Side:           entry.Get("Side").TextOr(""),
			BodyPart:       bodyPart,
			BodyPartName:   parser.translator.Resolve(bodyPart),
			WeaponID:       weaponID,
			WeaponName:     parser.translator.Resolve(weaponID),
			DistanceMeters: math.Round(entry.Get("Distance").FloatOr(0)*10) / 10,
		}
		victims = append(victims, victim)
	}
	return victims
}

// killer merges the aggressor, death cause and damage history sections. Any of
// them may be missing; the result is nil only when all three are.
func (parser *Parser) killer(stats Node) *models.KillerInfo {
	aggressor, hasAggressor := stats.Get("Aggressor").NonEmptyMap()
	deathCause, hasDeathCause := stats.Get("DeathCause").NonEmptyMap()
	history, hasHistory := stats.Get("DamageHistory").NonEmptyMap()
	if !hasAggressor && !hasDeathCause && !hasHistory {
		return nil
	}

	role := firstOf(aggressor.Get("Role").NonEmptyText, deathCause.Get("Role").NonEmptyText).or("")
	side := firstOf(aggressor.Get("Side").NonEmptyText, deathCause.Get("Side").NonEmptyText).or("")
	weaponID := firstToken(firstOf(deathCause.Get("WeaponId").NonEmptyText, aggressor.Get("WeaponName").NonEmptyText).or(""))
	damageType := firstOf(deathCause.Get("DamageType").NonEmptyText, history.Get("LethalDamage", "Type").NonEmptyText).or("")
	lethalPart := history.Get("LethalDamagePart").TextOr("")

	return &models.KillerInfo{
		Name:               aggressor.Get("Name").TextOr(""),
		Role:               role,
		RoleName:           parser.translator.Resolve(role),
		Side:               side,
		SideName:           parser.translator.Resolve(side),
		WeaponID:           weaponID,
		WeaponName:         parser.translator.Resolve(weaponID),
		DamageType:         damageType,
		DamageTypeName:     parser.translator.Resolve(damageType),
		LethalBodyPart:     lethalPart,
		LethalBodyPartName: parser.translator.Resolve(lethalPart),
		LethalDamage:       math.Round(history.Get("LethalDamage", "Amount").FloatOr(0)*10) / 10,
	}
}

// achievementList maps achievement id to unlock time, newest first
func (parser *Parser) achievementList(achievements Node) []models.Achievement {
	list := []models.Achievement{}
	object, ok := achievements.Map()
	if !ok {
		return list
	}

	for _, id := range achievements.Keys() {
		achievement := models.Achievement{
			ID:       id,
			Name:     parser.translator.Resolve(id),
			ImageURL: parser.achievements.ImageFile(id),
		}
		if seconds := NewNode(object[id]).IntOr(0); seconds > 0 {
			achievement.UnlockedAt = time.Unix(seconds, 0).UTC()
		}
		list = append(list, achievement)
	}

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UnlockedAt.Equal(list[j].UnlockedAt) {
			return list[i].UnlockedAt.After(list[j].UnlockedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// firstToken returns the text before the first space
func firstToken(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
