package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"planner-sync/internal/api"
	"planner-sync/internal/ascension"
	"planner-sync/internal/constants"
	"planner-sync/internal/cover"
	"planner-sync/internal/domain"
	"planner-sync/internal/goal"
	"planner-sync/internal/inventory"
	"planner-sync/internal/refdata"
)

// GameAPI is the upstream publisher API surface the orchestrator needs.
type GameAPI interface {
	GetAvatarBasicList(ctx context.Context) (*api.AvatarBasicListData, error)
	GetAvatarDetail(ctx context.Context, ids []int64) (*api.AvatarDetailData, error)
	GetEnergy(ctx context.Context) (*api.EnergyData, error)
	GetAvatarCalc(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error)
}

// PlannerStore is the target-application state surface. The sync core
// never assumes anything about how the planner is implemented beyond
// this interface.
type PlannerStore interface {
	GetGoal(ctx context.Context, subjectKey string, kind domain.GoalKind) (*domain.Goal, error)
	UpsertGoal(ctx context.Context, g *domain.Goal) error
	SetItem(itemType, key string, tier, quantity int) bool
	SetBattery(ctx context.Context, amount int, fullAt string) error
	CharacterCatalog(ctx context.Context) ([]domain.CatalogEntry, error)
	WeaponCatalog(ctx context.Context) ([]domain.WeaponCatalogEntry, error)
	ItemTypes(ctx context.Context) (map[string]string, error)
}

// ReferenceSource supplies the stat/locale snapshot for a sync session.
type ReferenceSource interface {
	Load(ctx context.Context) (*refdata.Snapshot, error)
}

// SyncAllResult reports the three sync categories independently. One
// category failing never discards the results of its siblings.
type SyncAllResult struct {
	BatteryOK       bool                   `json:"battery_ok"`
	BatteryError    string                 `json:"battery_error,omitempty"`
	Characters      domain.BatchSyncResult `json:"characters"`
	CharactersError string                 `json:"characters_error,omitempty"`
	ItemsOK         bool                   `json:"items_ok"`
	ItemsError      string                 `json:"items_error,omitempty"`
	TotalSuccess    bool                   `json:"total_success"`
}

// SyncService sequences the solvers, mergers and reconciler into the
// three sync operations plus a combined sync-all. It has no concurrency
// guard of its own; serializing invocations is the caller's job.
type SyncService struct {
	game       GameAPI
	store      PlannerStore
	refdata    ReferenceSource
	solver     *ascension.Solver
	merger     *goal.Merger
	cover      *cover.Solver
	reconciler *inventory.Reconciler
	logger     zerolog.Logger
}

func NewSyncService(
	game GameAPI,
	store PlannerStore,
	refSource ReferenceSource,
	solver *ascension.Solver,
	merger *goal.Merger,
	coverSolver *cover.Solver,
	reconciler *inventory.Reconciler,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		game:       game,
		store:      store,
		refdata:    refSource,
		solver:     solver,
		merger:     merger,
		cover:      coverSolver,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SyncBattery reads the battery charge and writes amount plus the
// reconstructed absolute "fully charged" timestamp into the planner.
// The upstream reports a relative countdown; the planner models decay
// from an absolute point, so the timestamp is rebuilt as
// now + restore - (max-current) * regen interval.
func (s *SyncService) SyncBattery(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	energy, err := s.game.GetEnergy(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch battery state: %w", err)
	}

	current := energy.Energy.Progress.Current
	maxAmount := energy.Energy.Progress.Max

	theoreticalRestore := time.Duration(maxAmount-current) * constants.BatteryRegenInterval
	fullAt := time.Now().
		Add(time.Duration(energy.Energy.Restore) * time.Second).
		Add(-theoreticalRestore)

	if err := s.store.SetBattery(ctx, current, fullAt.Format(time.RFC3339)); err != nil {
		return err
	}

	s.logger.Info().
		Int("amount", current).
		Int("max", maxAmount).
		Time("full_at", fullAt).
		Msg("battery state synced")
	return nil
}

// SyncCharacters fetches the whole roster and merges every character's
// level, ascension, talents and equipped weapon into the planner goals.
// Per-subject failures are folded into the batch result; only failing to
// obtain any data at all is an error.
func (s *SyncService) SyncCharacters(ctx context.Context) (domain.BatchSyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	var result domain.BatchSyncResult

	snap, err := s.refdata.Load(ctx)
	if err != nil {
		return result, err
	}

	basic, err := s.game.GetAvatarBasicList(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch character roster: %w", err)
	}
	if len(basic.AvatarList) == 0 {
		return result, fmt.Errorf("account reports no characters")
	}

	charCatalog, err := s.store.CharacterCatalog(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load character catalog: %w", err)
	}
	weaponCatalog, err := s.store.WeaponCatalog(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load weapon catalog: %w", err)
	}
	charByID := lo.KeyBy(charCatalog, func(e domain.CatalogEntry) int64 { return e.ID })
	weaponByID := lo.KeyBy(weaponCatalog, func(e domain.WeaponCatalogEntry) int64 { return e.ID })

	ids := lo.Map(basic.AvatarList, func(a api.AvatarBasic, _ int) int64 { return a.ID })
	details, err := s.game.GetAvatarDetail(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to fetch character details: %w", err)
	}

	result.Total = len(details.AvatarList)
	for _, d := range details.AvatarList {
		entry, ok := charByID[d.ID]
		if !ok {
			s.fail(&result, fmt.Sprintf("%d", d.ID), fmt.Sprintf("character %d not in planner catalog", d.ID))
			continue
		}

		if err := s.syncOneCharacter(ctx, snap, entry, weaponByID, d); err != nil {
			s.fail(&result, entry.Key, err.Error())
			continue
		}

		result.Success++
		result.Details = append(result.Details, domain.SubjectResult{SubjectKey: entry.Key, OK: true})
	}

	s.logger.Info().
		Int("total", result.Total).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("character sync complete")
	return result, nil
}

func (s *SyncService) fail(result *domain.BatchSyncResult, subjectKey, msg string) {
	result.Failed++
	result.Errors = append(result.Errors, msg)
	result.Details = append(result.Details, domain.SubjectResult{SubjectKey: subjectKey, Message: msg})
	s.logger.Warn().Str("subject", subjectKey).Str("reason", msg).Msg("character sync item failed")
}

func (s *SyncService) syncOneCharacter(
	ctx context.Context,
	snap *refdata.Snapshot,
	entry domain.CatalogEntry,
	weaponByID map[int64]domain.WeaponCatalogEntry,
	d api.AvatarDetail,
) error {
	p := toCharacterProgress(d)

	tier, exact := s.solver.ResolveCharacter(p, snap.Tables)
	p.Ascension = tier
	if !exact {
		s.logger.Info().
			Str("subject", entry.Key).
			Int("level", p.Level).
			Int("tier", tier).
			Msg("ascension tier approximated from level bracket")
	}

	existing, err := s.store.GetGoal(ctx, entry.Key, domain.GoalCharacter)
	if err != nil {
		return err
	}
	charGoal := s.merger.MergeCharacter(existing, entry.Key, p)
	if err := s.store.UpsertGoal(ctx, &charGoal); err != nil {
		return err
	}

	existingTalent, err := s.store.GetGoal(ctx, entry.Key, domain.GoalTalent)
	if err != nil {
		return err
	}
	talentGoal := s.merger.MergeTalent(existingTalent, entry.Key, p)
	if err := s.store.UpsertGoal(ctx, &talentGoal); err != nil {
		return err
	}

	if d.Weapon == nil {
		return nil
	}

	w := toWeaponProgress(*d.Weapon)
	wEntry, ok := weaponByID[w.ID]
	if !ok {
		return fmt.Errorf("equipped weapon %d not in planner catalog", w.ID)
	}

	wTier, wExact := s.solver.ResolveWeapon(w, snap.Tables)
	w.Ascension = wTier
	if !wExact {
		s.logger.Info().
			Str("subject", entry.Key).
			Str("weapon", wEntry.Key).
			Int("tier", wTier).
			Msg("weapon ascension tier approximated from level bracket")
	}

	existingWeapon, err := s.store.GetGoal(ctx, entry.Key, domain.GoalWeapon)
	if err != nil {
		return err
	}
	weaponGoal := s.merger.MergeWeapon(existingWeapon, entry.Key, wEntry.Key, w, wEntry.Craftable)
	return s.store.UpsertGoal(ctx, &weaponGoal)
}

// SyncItems selects the representative characters covering every drop
// category, fans out their calc queries, reconciles the owned-material
// union and writes it into the planner inventory.
func (s *SyncService) SyncItems(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	snap, err := s.refdata.Load(ctx)
	if err != nil {
		return err
	}

	charCatalog, err := s.store.CharacterCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load character catalog: %w", err)
	}
	weaponCatalog, err := s.store.WeaponCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load weapon catalog: %w", err)
	}

	reps := s.cover.SelectCoveringCharacters(charCatalog)
	if len(reps) == 0 {
		return fmt.Errorf("no representative characters could be selected")
	}
	repWeapons := s.cover.SelectRepresentativeWeapons(weaponCatalog)
	charByID := lo.KeyBy(charCatalog, func(e domain.CatalogEntry) int64 { return e.ID })

	// Per-representative fetches are independently failable; completion
	// order does not matter because the merge is a union.
	results := make([]*api.AvatarCalcData, len(reps))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.CalcFanOutLimit)
	for i, rep := range reps {
		g.Go(func() error {
			weaponID := repWeapons[charByID[rep.ID].Style]
			calc, err := s.game.GetAvatarCalc(gCtx, rep.ID, weaponID)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("subject", rep.Key).
					Msg("calc query failed for representative character")
				return nil
			}
			results[i] = calc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fetched := lo.CountBy(results, func(r *api.AvatarCalcData) bool { return r != nil })
	if fetched == 0 {
		return fmt.Errorf("no calc data could be fetched for any representative character")
	}

	materials := s.reconciler.MergeOwnedMaterials(results)
	inv := s.reconciler.BuildInventory(results, materials)
	translation := inventory.BuildTranslation(snap.Locale)

	itemTypes, err := s.store.ItemTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load item types: %w", err)
	}

	res := s.reconciler.TranslateAndApply(inv, translation, itemTypes, s.store)
	s.logger.Info().
		Int("representatives", len(reps)).
		Int("fetched", fetched).
		Int("materials", len(materials)).
		Int("applied", res.Success).
		Int("failed", res.Failed).
		Msg("item sync complete")
	return nil
}

// SyncAll runs battery and character sync concurrently (independent
// upstream calls, disjoint planner writes), then item sync. Overall
// success requires all three categories; partial failure is reported,
// not escalated.
func (s *SyncService) SyncAll(ctx context.Context) SyncAllResult {
	var res SyncAllResult

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.SyncBattery(ctx); err != nil {
			res.BatteryError = err.Error()
			return nil
		}
		res.BatteryOK = true
		return nil
	})
	g.Go(func() error {
		chars, err := s.SyncCharacters(ctx)
		res.Characters = chars
		if err != nil {
			res.CharactersError = err.Error()
		}
		return nil
	})
	_ = g.Wait()

	if err := s.SyncItems(ctx); err != nil {
		res.ItemsError = err.Error()
	} else {
		res.ItemsOK = true
	}

	res.TotalSuccess = res.BatteryOK && res.Characters.Success >= 1 && res.ItemsOK
	s.logger.Info().
		Bool("battery_ok", res.BatteryOK).
		Int("characters_success", res.Characters.Success).
		Bool("items_ok", res.ItemsOK).
		Bool("total_success", res.TotalSuccess).
		Msg("sync all complete")
	return res
}
