package models

import "time"

// RaidResult is the raw outcome string reported by the game client
type RaidResult string

const (
	ResultSurvived        RaidResult = "Survived"
	ResultKilled          RaidResult = "Killed"
	ResultMissingInAction RaidResult = "MissingInAction"
	ResultRunner          RaidResult = "Runner"
)

// EventKind identifies which session event a stored document belongs to
type EventKind string

const (
	EventStart   EventKind = "start"
	EventEnd     EventKind = "end"
	EventConnect EventKind = "connect_event"
)

// RaidRecord is the normalized, immutable view of one session-end document
type RaidRecord struct {
	// Identity
	SessionFileID  string    `json:"sessionFileId"`
	SessionID      string    `json:"sessionId"`
	Timestamp      time.Time `json:"timestampUtc"`
	TimestampKnown bool      `json:"timestampKnown"`
	Nickname       string    `json:"playerNickname"`
	ProfileID      string    `json:"profileId,omitempty"`
	AccountID      string    `json:"accountId,omitempty"`

	// Player snapshot at the end of the raid
	Level             int    `json:"level"`
	Side              string `json:"side"`
	SideName          string `json:"sideName"`
	GameEdition       string `json:"gameEdition"`
	ProfileExperience int64  `json:"profileExperience"`
	RegistrationDate  int64  `json:"registrationDate,omitempty"`

	// Raid outcome
	Result          RaidResult `json:"result"`
	ResultName      string     `json:"resultName"`
	ExitName        string     `json:"exitName,omitempty"`
	Location        string     `json:"location"`
	LocationName    string     `json:"locationName"`
	DurationSeconds int        `json:"durationSeconds"`
	SurvivorClass   string     `json:"survivorClass,omitempty"`

	// Derived stats
	Kills                int                 `json:"kills"`
	Headshots            int                 `json:"headshots"`
	Experience           ExperienceBreakdown `json:"experience"`
	LongestShotMeters    float64             `json:"longestShotMeters"`
	DamageDealt          int64               `json:"damageDealt"`
	DistanceTraveled     int64               `json:"distanceTraveled"`
	BloodLoss            int64               `json:"bloodLoss"`
	DamageReceivedByPart map[string]float64  `json:"damageReceivedByPart"`
	SessionCounters      []CounterDisplay    `json:"sessionCounters"`

	// Collections
	Victims          []Victim      `json:"victims"`
	FoundInRaidItems []ItemEntry   `json:"foundInRaidItems"`
	TransferItems    []ItemEntry   `json:"transferItems"`
	DroppedItems     []ItemEntry   `json:"droppedItems"`
	LostInsuredItems []ItemEntry   `json:"lostInsuredItems"`
	QuestItems       []ItemEntry   `json:"questItems"`
	Skills           []SkillChange `json:"skills"`
	Achievements     []Achievement `json:"achievements"`
	Killer           *KillerInfo   `json:"killer,omitempty"`
	KillerProfileID  string        `json:"killerProfileId,omitempty"`
	KillerAccountID  string        `json:"killerAccountId,omitempty"`

	// Health at the end of the raid
	Health []BodyPartHealth `json:"health"`
	Vitals Vitals           `json:"vitals"`

	// Relative path of the source document under the raid data root
	SourcePath string `json:"sourcePath"`
}

// ExperienceBreakdown holds the experience counters that make up a session's gain
type ExperienceBreakdown struct {
	Kill              int64   `json:"kill"`
	Looting           int64   `json:"looting"`
	ExitStatus        int64   `json:"exitStatus"`
	Total             int64   `json:"total"`
	FromOverall       bool    `json:"fromOverall"`
	ReportedSession   int64   `json:"reportedSession"`
	SessionMultiplier float64 `json:"sessionMultiplier"`
	BonusMultiplier   float64 `json:"bonusMultiplier"`
}

// CounterDisplay is one session counter rendered for the detail view
type CounterDisplay struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Victim is one kill made by the player during the raid
type Victim struct {
	Name           string  `json:"name"`
	Level          int     `json:"level"`
	Role           string  `json:"role"`
	RoleName       string  `json:"roleName"`
	Side           string  `json:"side,omitempty"`
	BodyPart       string  `json:"bodyPart"`
	BodyPartName   string  `json:"bodyPartName"`
	WeaponID       string  `json:"weaponId,omitempty"`
	WeaponName     string  `json:"weaponName"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// KillerInfo describes who or what killed the player. Fields from an absent
// document section are left empty.
type KillerInfo struct {
	Name               string  `json:"name,omitempty"`
	Role               string  `json:"role,omitempty"`
	RoleName           string  `json:"roleName,omitempty"`
	Side               string  `json:"side,omitempty"`
	SideName           string  `json:"sideName,omitempty"`
	WeaponID           string  `json:"weaponId,omitempty"`
	WeaponName         string  `json:"weaponName,omitempty"`
	DamageType         string  `json:"damageType,omitempty"`
	DamageTypeName     string  `json:"damageTypeName,omitempty"`
	LethalBodyPart     string  `json:"lethalBodyPart,omitempty"`
	LethalBodyPartName string  `json:"lethalBodyPartName,omitempty"`
	LethalDamage       float64 `json:"lethalDamage,omitempty"`
}

// ItemEntry is a consolidated item with its summed count
type ItemEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SkillType distinguishes the two skill catalogs in a profile
type SkillType string

const (
	SkillCommon    SkillType = "Common"
	SkillMastering SkillType = "Mastering"
)

// SkillChange is a skill that progressed during the session
type SkillChange struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               SkillType `json:"type"`
	Progress           float64   `json:"progress"`
	PointsEarned       float64   `json:"pointsEarned"`
	ProgressPercentage float64   `json:"progressPercentage"`
}

// Achievement is an achievement present on the profile
type Achievement struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageUrl"`
	UnlockedAt time.Time `json:"unlockedAt,omitempty"`
}

// BodyPartHealth is the state of one anatomical region
type BodyPartHealth struct {
	Part          string   `json:"part"`
	Name          string   `json:"name"`
	Current       float64  `json:"current"`
	Maximum       float64  `json:"maximum"`
	ActiveEffects []string `json:"activeEffects"`
}

// Vitals holds the non-regional health values
type Vitals struct {
	Energy       float64 `json:"energy"`
	MaxEnergy    float64 `json:"maxEnergy"`
	Hydration    float64 `json:"hydration"`
	MaxHydration float64 `json:"maxHydration"`
	Temperature  float64 `json:"temperature"`
	Poison       float64 `json:"poison"`
}

// RaidStart is the normalized view of a session-start document
type RaidStart struct {
	SessionID    string `json:"sessionId"`
	Nickname     string `json:"nickname"`
	Level        int    `json:"level"`
	Side         string `json:"side"`
	Location     string `json:"location"`
	LocationName string `json:"locationName"`
	TimeVariant  string `json:"timeVariant"`
}

// PlayerSummary holds lifetime statistics for one nickname
type PlayerSummary struct {
	Nickname          string  `json:"nickname"`
	LatestLevel       int     `json:"latestLevel"`
	LatestSide        string  `json:"latestSide"`
	LatestGameEdition string  `json:"latestGameEdition"`
	RaidCount         int     `json:"raidCount"`
	TotalKills        int     `json:"totalKills"`
	TotalHeadshots    int     `json:"totalHeadshots"`
	TotalExperience   int64   `json:"totalExperience"`
	TotalSurvived     int     `json:"totalSurvived"`
	TotalDeaths       int     `json:"totalDeaths"`
	LongestShotMeters float64 `json:"longestShotMeters"`

	// Derived once after folding
	KillDeathRatio string `json:"killDeathRatio"`
	SurvivalRate   string `json:"survivalRate"`
}

// Snapshot is the aggregated world state held by the summary cache
type Snapshot struct {
	Records     []*RaidRecord             `json:"records"`
	Players     map[string]*PlayerSummary `json:"players"`
	ParseErrors []string                  `json:"parseErrors"`
	BuiltAt     time.Time                 `json:"builtAt"`

	generation uint64
}

// NewSnapshot creates a snapshot stamped with the cache generation it was built for
func NewSnapshot(records []*RaidRecord, players map[string]*PlayerSummary, parseErrors []string, builtAt time.Time, generation uint64) *Snapshot {
	return &Snapshot{
		Records:     records,
		Players:     players,
		ParseErrors: parseErrors,
		BuiltAt:     builtAt,
		generation:  generation,
	}
}

// Generation returns the invalidation generation the snapshot was built for
func (snapshot *Snapshot) Generation() uint64 {
	return snapshot.generation
}

// RecordsFor returns the records of one player, newest first
func (snapshot *Snapshot) RecordsFor(nickname string) []*RaidRecord {
	var playerRecords []*RaidRecord
	for _, record := range snapshot.Records {
		if record.Nickname == nickname {
			playerRecords = append(playerRecords, record)
		}
	}
	return playerRecords
}
