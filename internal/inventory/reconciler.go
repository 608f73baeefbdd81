package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"planner-sync/internal/api"
	"planner-sync/internal/domain"
	"planner-sync/internal/refdata"
)

// ItemWriter is the planner-side inventory surface. SetItem reports
// whether the planner accepted the write; a false return is a per-item
// failure, never a batch abort.
type ItemWriter interface {
	SetItem(itemType, key string, tier, quantity int) bool
}

// Reconciler merges the heterogeneous material data of several calc
// queries into one canonical owned-quantity view and writes it into the
// planner inventory.
type Reconciler struct {
	logger zerolog.Logger
}

func NewReconciler(logger zerolog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// MergeOwnedMaterials collects every material referenced by any
// consumption or still-needed list across the results, keyed by id.
// The first occurrence's display name wins on duplicate ids.
func (r *Reconciler) MergeOwnedMaterials(results []*api.AvatarCalcData) map[int64]domain.MaterialCatalogEntry {
	merged := make(map[int64]domain.MaterialCatalogEntry)
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, list := range [][]api.CalcItem{res.AvatarConsume, res.WeaponConsume, res.SkillConsume, res.NeedGet} {
			for _, item := range list {
				if _, ok := merged[item.ID]; !ok {
					merged[item.ID] = domain.MaterialCatalogEntry{ID: item.ID, Name: item.Name}
				}
			}
		}
	}
	return merged
}

// BuildInventory folds the owned-quantity maps of all results into one
// display-name keyed quantity map. Owned quantities are account-global,
// so a later result overwriting an earlier one for the same id is
// expected and idempotent. Catalog materials never reported owned are
// emitted with quantity 0 so the planner clears stale counts.
func (r *Reconciler) BuildInventory(results []*api.AvatarCalcData, catalog map[int64]domain.MaterialCatalogEntry) map[string]int {
	owned := make(map[int64]int)
	for _, res := range results {
		if res == nil {
			continue
		}
		for idStr, qty := range res.UserOwnsMaterials {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				r.logger.Debug().Str("material_id", idStr).Msg("unparseable material id in owned map")
				continue
			}
			owned[id] = qty
		}
	}

	inv := make(map[string]int, len(catalog))
	for id, mat := range catalog {
		inv[mat.Name] = owned[id]
	}
	return inv
}

// BuildTranslation inverts a locale string table into a display-name to
// planner-key map. Tiered entries map each name to "base+tierIndex".
// The first name mapping wins on collisions.
func BuildTranslation(locale map[string]refdata.LocaleEntry) map[string]string {
	out := make(map[string]string, len(locale))
	put := func(name, key string) {
		if name == "" {
			return
		}
		if _, exists := out[name]; !exists {
			out[name] = key
		}
	}
	for key, entry := range locale {
		if entry.Tiered != nil {
			for i, name := range entry.Tiered {
				put(name, fmt.Sprintf("%s+%d", key, i))
			}
			continue
		}
		put(entry.Single, key)
	}
	return out
}

// TranslateAndApply resolves each display name to a planner item key and
// writes the quantity. Untranslatable names, unknown item types and
// rejected writes count as failures and processing continues; one bad
// mapping must never abort the batch.
func (r *Reconciler) TranslateAndApply(inv map[string]int, translation map[string]string, itemTypes map[string]string, w ItemWriter) domain.SyncResult {
	var result domain.SyncResult

	for name, qty := range inv {
		key, ok := translation[name]
		if !ok {
			r.logger.Debug().Str("name", name).Msg("no translation for material name")
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("untranslatable material %q", name))
			continue
		}

		base := key
		tier := 0
		if idx := strings.IndexByte(key, '+'); idx >= 0 {
			base = key[:idx]
			t, err := strconv.Atoi(key[idx+1:])
			if err != nil {
				r.logger.Debug().Str("key", key).Msg("malformed tiered item key")
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("malformed tiered key %q", key))
				continue
			}
			tier = t
		}

		itemType, ok := itemTypes[base]
		if !ok {
			r.logger.Debug().Str("key", base).Msg("unknown item type for planner key")
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("unknown item type for %q", base))
			continue
		}

		if !w.SetItem(itemType, base, tier, qty) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("planner rejected write for %q", base))
			continue
		}
		result.Success++
	}

	return result
}
