package cover

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"planner-sync/internal/domain"
)

// Selection is one character chosen to stand in for its tag categories
// when querying the rate-limited per-character calc endpoint.
type Selection struct {
	ID         int64
	Key        string
	PrimaryTag string // the first still-uncovered tag this pick covered
}

// Solver picks minimal-ish representative subsets of the planner catalog.
type Solver struct {
	logger zerolog.Logger
}

func NewSolver(logger zerolog.Logger) *Solver {
	return &Solver{logger: logger}
}

// entryTags returns the entry's tag values, namespaced per dimension so
// equal strings in different dimensions stay distinct.
func entryTags(e domain.CatalogEntry) []string {
	tags := make([]string, 0, 4)
	if e.Attribute != "" {
		tags = append(tags, "attribute:"+e.Attribute)
	}
	if e.Style != "" {
		tags = append(tags, "style:"+e.Style)
	}
	if e.SimulDropTag != "" {
		tags = append(tags, "simul:"+e.SimulDropTag)
	}
	if e.WeeklyBossTag != "" {
		tags = append(tags, "weekly:"+e.WeeklyBossTag)
	}
	return tags
}

// SelectCoveringCharacters greedily picks catalog entries until their
// combined tags cover every tag value present in the catalog. Ties break
// on catalog order.
func (s *Solver) SelectCoveringCharacters(catalog []domain.CatalogEntry) []Selection {
	universe := make([]string, 0)
	seen := make(map[string]bool)
	for _, e := range catalog {
		for _, t := range entryTags(e) {
			if !seen[t] {
				seen[t] = true
				universe = append(universe, t)
			}
		}
	}
	return s.CoverTags(universe, catalog)
}

// CoverTags runs greedy set cover of universe by catalog entries. If no
// remaining entry covers anything (a universe value no entry carries)
// the loop stops and the partial cover is returned; a malformed input
// must not spin forever.
func (s *Solver) CoverTags(universe []string, catalog []domain.CatalogEntry) []Selection {
	uncovered := make(map[string]bool, len(universe))
	for _, t := range universe {
		uncovered[t] = true
	}

	selected := make([]Selection, 0)
	picked := make(map[int64]bool)

	for len(uncovered) > 0 {
		bestIdx := -1
		bestCount := 0
		bestTag := ""

		for i, e := range catalog {
			if picked[e.ID] {
				continue
			}
			count := 0
			first := ""
			for _, t := range entryTags(e) {
				if uncovered[t] {
					if first == "" {
						first = t
					}
					count++
				}
			}
			if count > bestCount {
				bestIdx = i
				bestCount = count
				bestTag = first
			}
		}

		if bestIdx < 0 {
			s.logger.Warn().
				Int("uncovered", len(uncovered)).
				Int("selected", len(selected)).
				Msg("no candidate covers any remaining tag, returning partial cover")
			break
		}

		e := catalog[bestIdx]
		picked[e.ID] = true
		for _, t := range entryTags(e) {
			delete(uncovered, t)
		}
		selected = append(selected, Selection{ID: e.ID, Key: e.Key, PrimaryTag: bestTag})
	}

	s.logger.Debug().
		Int("catalog_size", len(catalog)).
		Int("selected", len(selected)).
		Msg("covering character selection complete")
	return selected
}

// SelectRepresentativeWeapons picks, per combat style, one craftable
// weapon of the highest rarity carried by that style. First match per
// style wins; no minimality claim.
func (s *Solver) SelectRepresentativeWeapons(catalog []domain.WeaponCatalogEntry) map[string]int64 {
	byStyle := lo.GroupBy(catalog, func(w domain.WeaponCatalogEntry) string {
		return w.Style
	})

	out := make(map[string]int64, len(byStyle))
	for style, weapons := range byStyle {
		sort.SliceStable(weapons, func(i, j int) bool {
			return weapons[i].Rarity > weapons[j].Rarity
		})
		for _, w := range weapons {
			if w.Craftable {
				out[style] = w.ID
				break
			}
		}
		if _, ok := out[style]; !ok {
			s.logger.Warn().Str("style", style).Msg("no craftable weapon for style")
		}
	}
	return out
}
