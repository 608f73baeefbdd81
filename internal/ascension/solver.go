package ascension

import (
	"math"

	"planner-sync/internal/domain"

	"github.com/rs/zerolog"
)

// PromotionLevels are the level brackets gating each ascension tier;
// index i is the highest level reachable at tier i.
var PromotionLevels = []int{10, 20, 30, 40, 50, 60}

// Solver infers discrete ascension tiers from raw stat samples by
// reconstructing the upstream stat formula against the reference tables.
type Solver struct {
	logger zerolog.Logger
}

func NewSolver(logger zerolog.Logger) *Solver {
	return &Solver{logger: logger}
}

// ResolveCharacter returns the ascension tier a character occupies and
// whether the tier was matched exactly. When no tier reproduces the
// observed HP (stat table miss or data drift) the level bracket is used
// instead; that is a degraded result, not an error.
func (s *Solver) ResolveCharacter(p domain.CharacterProgress, tables domain.ReferenceTables) (int, bool) {
	stats, ok := tables.Characters[p.ID]
	if !ok {
		s.logger.Warn().
			Int64("character_id", p.ID).
			Int("level", p.Level).
			Msg("no stat table entry for character, falling back to level bracket")
		return LevelBracket(p.Level), false
	}

	observed := p.Stats[domain.PropertyHP].Preferred()

	// Expected base HP at the current level, before the ascension bonus.
	// Growth is stored as parts-per-ten-thousand per level.
	calculated := float64(stats.BaseHP) + float64(p.Level-1)*float64(stats.GrowthHP)/10000

	// The core passive grants a flat HP bonus from level 2 upward.
	if core, ok := p.Skills[domain.SkillCore]; ok && core >= 2 {
		if idx := core - 2; idx < len(stats.CoreSkillHP) {
			calculated += float64(stats.CoreSkillHP[idx])
		}
	}

	for i, delta := range stats.AscensionHP {
		if int(math.Floor(calculated+float64(delta))) == observed {
			return i, true
		}
	}

	s.logger.Warn().
		Int64("character_id", p.ID).
		Int("level", p.Level).
		Int("observed_hp", observed).
		Float64("calculated_base", calculated).
		Msg("no ascension tier reproduces observed HP, falling back to level bracket")
	return LevelBracket(p.Level), false
}

// ResolveWeapon is the ATK counterpart of ResolveCharacter: the growth
// curve is level-indexed rather than linear, and both the growth and the
// ascension deltas are rates applied to the weapon's base ATK.
func (s *Solver) ResolveWeapon(w domain.WeaponProgress, tables domain.ReferenceTables) (int, bool) {
	base, ok := tables.WeaponBaseATK[w.ID]
	if !ok {
		s.logger.Warn().
			Int64("weapon_id", w.ID).
			Int("level", w.Level).
			Msg("no stat table entry for weapon, falling back to level bracket")
		return LevelBracket(w.Level), false
	}

	observed := w.ATK.Preferred()
	common := tables.WeaponCommon

	calculated := float64(base)
	if w.Level < len(common.LevelGrowthRate) {
		calculated += float64(base) * float64(common.LevelGrowthRate[w.Level]) / 10000
	}

	for i, rate := range common.AscensionATKRate {
		candidate := calculated + float64(base)*float64(rate)/10000
		if int(math.Floor(candidate)) == observed {
			return i, true
		}
	}

	s.logger.Warn().
		Int64("weapon_id", w.ID).
		Int("level", w.Level).
		Int("observed_atk", observed).
		Msg("no ascension tier reproduces observed ATK, falling back to level bracket")
	return LevelBracket(w.Level), false
}

// LevelBracket approximates the ascension tier as the index of the first
// promotion level at or above the given level.
func LevelBracket(level int) int {
	for i, threshold := range PromotionLevels {
		if threshold >= level {
			return i
		}
	}
	return len(PromotionLevels) - 1
}
