package goal

import (
	"github.com/rs/zerolog"

	"planner-sync/internal/domain"
)

// recognizedSlots are the talent slots the planner tracks.
var recognizedSlots = []domain.SkillSlot{
	domain.SkillBasic,
	domain.SkillSpecial,
	domain.SkillDodge,
	domain.SkillChain,
	domain.SkillCore,
	domain.SkillAssist,
}

// Merger folds freshly observed progress into stored planner goals.
// Targets never decrease: a sync records what the player has, it must
// not undo what the player planned.
type Merger struct {
	logger zerolog.Logger
}

func NewMerger(logger zerolog.Logger) *Merger {
	return &Merger{logger: logger}
}

// MergeCharacter returns the updated character goal for subjectKey.
// Current is overwritten with the observation; Target is raised to at
// least the observation and otherwise kept.
func (m *Merger) MergeCharacter(existing *domain.Goal, subjectKey string, p domain.CharacterProgress) domain.Goal {
	g := domain.Goal{
		SubjectKey: subjectKey,
		Kind:       domain.GoalCharacter,
		Current: domain.Progression{
			Level:     p.Level,
			Ascension: p.Ascension,
		},
		Target: domain.Progression{
			Level:     p.Level,
			Ascension: p.Ascension,
		},
	}

	if existing != nil {
		g.ID = existing.ID
		g.CreatedAt = existing.CreatedAt
		g.Target.Level = max(existing.Target.Level, p.Level)
		g.Target.Ascension = max(existing.Target.Ascension, p.Ascension)
	}

	return g
}

// MergeWeapon returns the updated weapon goal for subjectKey. When the
// tracked weapon changed (the character re-equipped), targets reset to
// the new weapon's observation instead of merging; merging levels across
// two different weapons would be meaningless. The craft tier only merges
// for weapons flagged craftable in the catalog.
func (m *Merger) MergeWeapon(existing *domain.Goal, subjectKey, weaponKey string, w domain.WeaponProgress, craftable bool) domain.Goal {
	g := domain.Goal{
		SubjectKey: subjectKey,
		Kind:       domain.GoalWeapon,
		WeaponKey:  weaponKey,
		Current: domain.Progression{
			Level:     w.Level,
			Ascension: w.Ascension,
			Craft:     w.Star,
		},
		Target: domain.Progression{
			Level:     w.Level,
			Ascension: w.Ascension,
			Craft:     w.Star,
		},
	}

	if existing == nil {
		return g
	}

	g.ID = existing.ID
	g.CreatedAt = existing.CreatedAt

	if existing.WeaponKey != weaponKey {
		m.logger.Debug().
			Str("subject", subjectKey).
			Str("previous_weapon", existing.WeaponKey).
			Str("new_weapon", weaponKey).
			Msg("tracked weapon changed, resetting weapon goal")
		return g
	}

	g.Target.Level = max(existing.Target.Level, w.Level)
	g.Target.Ascension = max(existing.Target.Ascension, w.Ascension)
	if craftable {
		g.Target.Craft = max(existing.Target.Craft, w.Star)
	}

	return g
}

// MergeTalent returns the updated talent goal for subjectKey. The
// effective current level of each slot subtracts the bonus levels the
// game grants for free: the core passive display level includes one, and
// duplicate ranks grant two at rank 3 and four at rank 5 on the other
// slots. Slots absent upstream are omitted, not zeroed.
func (m *Merger) MergeTalent(existing *domain.Goal, subjectKey string, p domain.CharacterProgress) domain.Goal {
	g := domain.Goal{
		SubjectKey: subjectKey,
		Kind:       domain.GoalTalent,
		Skills:     make(map[domain.SkillSlot]domain.SkillGoal, len(recognizedSlots)),
	}

	if existing != nil {
		g.ID = existing.ID
		g.CreatedAt = existing.CreatedAt
	}

	for _, slot := range recognizedSlots {
		level, ok := p.Skills[slot]
		if !ok {
			continue
		}

		effective := level - rankBonus(slot, p.Rank)
		if effective < 1 {
			effective = 1
		}

		target := effective
		if existing != nil {
			if prev, ok := existing.Skills[slot]; ok {
				target = max(prev.Target, effective)
			}
		}

		g.Skills[slot] = domain.SkillGoal{Current: effective, Target: target}
	}

	return g
}

func rankBonus(slot domain.SkillSlot, rank int) int {
	if slot == domain.SkillCore {
		return 1
	}
	switch {
	case rank >= 5:
		return 4
	case rank >= 3:
		return 2
	}
	return 0
}
