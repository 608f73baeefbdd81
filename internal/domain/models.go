package domain

import (
	"time"
)

// Upstream stat property ids consumed by the ascension solver. Each
// property row carries both a base and a final (gear-inclusive) value.
const (
	PropertyHP  = 1
	PropertyATK = 2
)

// SkillSlot mirrors the upstream skill_type discriminator.
type SkillSlot int

const (
	SkillBasic   SkillSlot = 0
	SkillSpecial SkillSlot = 1
	SkillDodge   SkillSlot = 2
	SkillChain   SkillSlot = 3
	SkillCore    SkillSlot = 5
	SkillAssist  SkillSlot = 6
)

// StatSample is one raw stat as reported by the avatar detail payload.
// Base is the pre-gear value and is preferred for tier derivation; Final
// includes gear and is only a fallback.
type StatSample struct {
	Base  int
	Final int
}

// Preferred returns the base value when present, the final value otherwise.
func (s StatSample) Preferred() int {
	if s.Base != 0 {
		return s.Base
	}
	return s.Final
}

// CharacterProgress is the normalized per-character input of one sync pass.
// It is built fresh from the upstream payload and discarded after merging.
type CharacterProgress struct {
	ID        int64
	Level     int
	Rank      int // duplicate count, 0-6
	Ascension int // derived, 0-based
	Stats     map[int]StatSample
	Skills    map[SkillSlot]int
}

// WeaponProgress is the normalized equipped-weapon input of one sync pass.
type WeaponProgress struct {
	ID        int64
	Level     int
	Star      int // refinement tier
	Ascension int // derived, 0-based
	ATK       StatSample
}

type GoalKind string

const (
	GoalCharacter GoalKind = "character"
	GoalTalent    GoalKind = "talent"
	GoalWeapon    GoalKind = "weapon"
)

// Progression is a (level, ascension, craft) triple. Craft is only
// meaningful for weapon goals and stays 0 elsewhere.
type Progression struct {
	Level     int `json:"level"`
	Ascension int `json:"ascension"`
	Craft     int `json:"craft,omitempty"`
}

// SkillGoal tracks one talent slot inside a talent goal.
type SkillGoal struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// Goal is a planner goal row. Current is overwritten on every sync;
// Target is monotonically non-decreasing once set.
type Goal struct {
	ID         string                  `json:"id"`          // nanoid
	SubjectKey string                  `json:"subject_key"` // planner catalog key of the character
	Kind       GoalKind                `json:"kind"`
	WeaponKey  string                  `json:"weapon_key,omitempty"` // kind=weapon: planner key of the tracked weapon
	Current    Progression             `json:"current"`
	Target     Progression             `json:"target"`
	Skills     map[SkillSlot]SkillGoal `json:"skills,omitempty"` // kind=talent
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// CatalogEntry is a playable character in the planner catalog, tagged
// with the four drop/roster dimensions the covering selection runs over.
type CatalogEntry struct {
	ID            int64
	Key           string
	Rarity        int
	Attribute     string
	Style         string
	SimulDropTag  string // simulated-battle drop-source category
	WeeklyBossTag string // weekly boss drop-source category
}

// WeaponCatalogEntry is a weapon in the planner catalog.
type WeaponCatalogEntry struct {
	ID        int64
	Key       string
	Rarity    int
	Style     string
	Craftable bool
}

// MaterialCatalogEntry is a known crafting material in the planner catalog.
type MaterialCatalogEntry struct {
	ID   int64
	Name string
}

// SyncResult aggregates per-item outcomes of one sync category.
type SyncResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// SubjectResult is the per-subject detail of a batch character sync.
type SubjectResult struct {
	SubjectKey string `json:"subject_key"`
	OK         bool   `json:"ok"`
	Message    string `json:"message,omitempty"`
}

// BatchSyncResult is a SyncResult with per-subject details.
type BatchSyncResult struct {
	SyncResult
	Total   int             `json:"total"`
	Details []SubjectResult `json:"details,omitempty"`
}

// CharacterStatTable holds the per-character reference curves. Growth
// values are integer parts-per-ten-thousand, divided by 10000 before use.
type CharacterStatTable struct {
	BaseHP      int
	GrowthHP    int
	CoreSkillHP []int // indexed by core skill level - 2
	AscensionHP []int // flat HP delta per ascension tier
}

// WeaponCommonTable holds the curves shared by all weapons.
type WeaponCommonTable struct {
	LevelGrowthRate  []int // indexed by level, parts-per-ten-thousand of base ATK
	AscensionATKRate []int // per ascension tier, parts-per-ten-thousand of base ATK
}

// ReferenceTables is the immutable stat snapshot for one sync session.
type ReferenceTables struct {
	Characters    map[int64]CharacterStatTable
	WeaponBaseATK map[int64]int
	WeaponCommon  WeaponCommonTable
}
