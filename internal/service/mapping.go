package service

import (
	"strconv"
	"strings"

	"planner-sync/internal/api"
	"planner-sync/internal/domain"
)

// parseStatValue turns an upstream display value ("7,673", "24%") into
// an integer. Unparseable values become 0, which the solver treats as
// absent.
func parseStatValue(s string) int {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// toCharacterProgress normalizes one avatar detail payload into the
// transient progress record the solvers and mergers consume.
func toCharacterProgress(d api.AvatarDetail) domain.CharacterProgress {
	stats := make(map[int]domain.StatSample, len(d.Properties))
	for _, p := range d.Properties {
		stats[p.PropertyID] = domain.StatSample{
			Base:  parseStatValue(p.Base),
			Final: parseStatValue(p.Final),
		}
	}

	skills := make(map[domain.SkillSlot]int, len(d.Skills))
	for _, sk := range d.Skills {
		skills[domain.SkillSlot(sk.SkillType)] = sk.Level
	}

	return domain.CharacterProgress{
		ID:     d.ID,
		Level:  d.Level,
		Rank:   d.Rank,
		Stats:  stats,
		Skills: skills,
	}
}

// toWeaponProgress normalizes an equipped-weapon payload.
func toWeaponProgress(w api.Weapon) domain.WeaponProgress {
	var atk domain.StatSample
	for _, p := range w.Properties {
		if p.PropertyID == domain.PropertyATK {
			atk = domain.StatSample{
				Base:  parseStatValue(p.Base),
				Final: parseStatValue(p.Final),
			}
			break
		}
	}

	return domain.WeaponProgress{
		ID:    w.ID,
		Level: w.Level,
		Star:  w.Star,
		ATK:   atk,
	}
}
