package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner-sync/internal/api"
	"planner-sync/internal/ascension"
	"planner-sync/internal/cover"
	"planner-sync/internal/domain"
	"planner-sync/internal/goal"
	"planner-sync/internal/inventory"
	"planner-sync/internal/refdata"
)

type fakeGame struct {
	basic  func(ctx context.Context) (*api.AvatarBasicListData, error)
	detail func(ctx context.Context, ids []int64) (*api.AvatarDetailData, error)
	energy func(ctx context.Context) (*api.EnergyData, error)
	calc   func(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error)
}

func (f *fakeGame) GetAvatarBasicList(ctx context.Context) (*api.AvatarBasicListData, error) {
	return f.basic(ctx)
}

func (f *fakeGame) GetAvatarDetail(ctx context.Context, ids []int64) (*api.AvatarDetailData, error) {
	return f.detail(ctx, ids)
}

func (f *fakeGame) GetEnergy(ctx context.Context) (*api.EnergyData, error) {
	return f.energy(ctx)
}

func (f *fakeGame) GetAvatarCalc(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error) {
	return f.calc(ctx, avatarID, weaponID)
}

type itemWrite struct {
	ItemType string
	Key      string
	Tier     int
	Quantity int
}

type fakeStore struct {
	mu            sync.Mutex
	goals         map[string]domain.Goal
	items         []itemWrite
	batteryAmount int
	batteryFullAt string
	batterySet    bool
	chars         []domain.CatalogEntry
	weapons       []domain.WeaponCatalogEntry
	itemTypes     map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{goals: make(map[string]domain.Goal)}
}

func goalKey(subjectKey string, kind domain.GoalKind) string {
	return subjectKey + "|" + string(kind)
}

func (f *fakeStore) GetGoal(ctx context.Context, subjectKey string, kind domain.GoalKind) (*domain.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.goals[goalKey(subjectKey, kind)]; ok {
		copied := g
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) UpsertGoal(ctx context.Context, g *domain.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == "" {
		g.ID = fmt.Sprintf("goal-%d", len(f.goals)+1)
	}
	f.goals[goalKey(g.SubjectKey, g.Kind)] = *g
	return nil
}

func (f *fakeStore) SetItem(itemType, key string, tier, quantity int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, itemWrite{itemType, key, tier, quantity})
	return true
}

func (f *fakeStore) SetBattery(ctx context.Context, amount int, fullAt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batteryAmount = amount
	f.batteryFullAt = fullAt
	f.batterySet = true
	return nil
}

func (f *fakeStore) CharacterCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	return f.chars, nil
}

func (f *fakeStore) WeaponCatalog(ctx context.Context) ([]domain.WeaponCatalogEntry, error) {
	return f.weapons, nil
}

func (f *fakeStore) ItemTypes(ctx context.Context) (map[string]string, error) {
	return f.itemTypes, nil
}

type fakeRef struct {
	snap *refdata.Snapshot
}

func (f *fakeRef) Load(ctx context.Context) (*refdata.Snapshot, error) {
	return f.snap, nil
}

func emptySnapshot() *refdata.Snapshot {
	return &refdata.Snapshot{
		Tables: domain.ReferenceTables{
			Characters:    map[int64]domain.CharacterStatTable{},
			WeaponBaseATK: map[int64]int{},
		},
		Locale: map[string]refdata.LocaleEntry{},
	}
}

func newService(game GameAPI, store PlannerStore, snap *refdata.Snapshot) *SyncService {
	nop := zerolog.Nop()
	return NewSyncService(
		game,
		store,
		&fakeRef{snap: snap},
		ascension.NewSolver(nop),
		goal.NewMerger(nop),
		cover.NewSolver(nop),
		inventory.NewReconciler(nop),
		nop,
	)
}

func rosterGame() *fakeGame {
	return &fakeGame{
		basic: func(ctx context.Context) (*api.AvatarBasicListData, error) {
			return &api.AvatarBasicListData{AvatarList: []api.AvatarBasic{
				{ID: 1, Level: 40}, {ID: 2, Level: 33}, {ID: 3, Level: 12},
			}}, nil
		},
		detail: func(ctx context.Context, ids []int64) (*api.AvatarDetailData, error) {
			return &api.AvatarDetailData{AvatarList: []api.AvatarDetail{
				{ID: 1, Level: 40, Rank: 0, Skills: []api.Skill{{Level: 7, SkillType: 0}}},
				{ID: 2, Level: 33, Rank: 3, Skills: []api.Skill{{Level: 5, SkillType: 1}}},
				{ID: 3, Level: 12, Rank: 0},
			}}, nil
		},
		energy: func(ctx context.Context) (*api.EnergyData, error) {
			var ed api.EnergyData
			ed.Energy.Progress.Current = 120
			ed.Energy.Progress.Max = 240
			ed.Energy.Restore = 36000
			return &ed, nil
		},
		calc: func(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error) {
			return &api.AvatarCalcData{
				AvatarConsume:     []api.CalcItem{{ID: 100, Name: "Basic Chip"}},
				UserOwnsMaterials: map[string]int{"100": 42},
			}, nil
		},
	}
}

func syncCatalog() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{ID: 1, Key: "anby", Attribute: "electric", Style: "stun", SimulDropTag: "shockstar", WeeklyBossTag: "notorious_a"},
		{ID: 2, Key: "billy", Attribute: "physical", Style: "attack", SimulDropTag: "woodpecker", WeeklyBossTag: "notorious_a"},
		{ID: 3, Key: "nicole", Attribute: "ether", Style: "support", SimulDropTag: "swing_jazz", WeeklyBossTag: "notorious_b"},
	}
}

func TestSyncBattery(t *testing.T) {
	store := newFakeStore()
	svc := newService(rosterGame(), store, emptySnapshot())

	start := time.Now()
	err := svc.SyncBattery(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, store.batteryAmount)

	// (240-120)*360s = 43200s of theoretical restore against a reported
	// 36000s countdown puts the reconstructed timestamp 7200s in the past.
	fullAt, err := time.Parse(time.RFC3339, store.batteryFullAt)
	require.NoError(t, err)
	expected := start.Add(-7200 * time.Second)
	assert.WithinDuration(t, expected, fullAt, 2*time.Second)
}

func TestSyncCharacters(t *testing.T) {
	t.Run("AllSubjectsSynced", func(t *testing.T) {
		store := newFakeStore()
		store.chars = syncCatalog()
		svc := newService(rosterGame(), store, emptySnapshot())

		result, err := svc.SyncCharacters(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 3, result.Success)
		assert.Equal(t, 0, result.Failed)

		g, ok := store.goals[goalKey("anby", domain.GoalCharacter)]
		require.True(t, ok)
		assert.Equal(t, 40, g.Current.Level)
		assert.Equal(t, 40, g.Target.Level)

		talent, ok := store.goals[goalKey("billy", domain.GoalTalent)]
		require.True(t, ok)
		// rank 3 subtracts two free levels from the special skill
		assert.Equal(t, 3, talent.Skills[domain.SkillSpecial].Current)
	})

	t.Run("UnknownCharacterIsPerItemFailure", func(t *testing.T) {
		store := newFakeStore()
		store.chars = syncCatalog()[:2]
		svc := newService(rosterGame(), store, emptySnapshot())

		result, err := svc.SyncCharacters(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, result.Success)
		assert.Equal(t, 1, result.Failed)
		assert.Len(t, result.Errors, 1)
	})

	t.Run("EmptyRosterIsCategoryFailure", func(t *testing.T) {
		game := rosterGame()
		game.basic = func(ctx context.Context) (*api.AvatarBasicListData, error) {
			return &api.AvatarBasicListData{}, nil
		}
		store := newFakeStore()
		store.chars = syncCatalog()
		svc := newService(game, store, emptySnapshot())

		_, err := svc.SyncCharacters(context.Background())
		assert.Error(t, err)
	})

	t.Run("TargetsSurviveRegression", func(t *testing.T) {
		store := newFakeStore()
		store.chars = syncCatalog()
		svc := newService(rosterGame(), store, emptySnapshot())

		_, err := svc.SyncCharacters(context.Background())
		require.NoError(t, err)

		// A later sync observing lower progress must not lower targets.
		game := rosterGame()
		game.detail = func(ctx context.Context, ids []int64) (*api.AvatarDetailData, error) {
			return &api.AvatarDetailData{AvatarList: []api.AvatarDetail{
				{ID: 1, Level: 20},
			}}, nil
		}
		svc = newService(game, store, emptySnapshot())
		_, err = svc.SyncCharacters(context.Background())
		require.NoError(t, err)

		g := store.goals[goalKey("anby", domain.GoalCharacter)]
		assert.Equal(t, 20, g.Current.Level)
		assert.Equal(t, 40, g.Target.Level)
	})

	t.Run("EquippedWeaponCreatesWeaponGoal", func(t *testing.T) {
		game := rosterGame()
		game.detail = func(ctx context.Context, ids []int64) (*api.AvatarDetailData, error) {
			return &api.AvatarDetailData{AvatarList: []api.AvatarDetail{
				{ID: 1, Level: 40, Weapon: &api.Weapon{ID: 14104, Level: 25, Star: 2}},
			}}, nil
		}
		store := newFakeStore()
		store.chars = syncCatalog()
		store.weapons = []domain.WeaponCatalogEntry{
			{ID: 14104, Key: "demara_battery", Rarity: 4, Style: "stun", Craftable: true},
		}
		svc := newService(game, store, emptySnapshot())

		result, err := svc.SyncCharacters(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)

		g, ok := store.goals[goalKey("anby", domain.GoalWeapon)]
		require.True(t, ok)
		assert.Equal(t, "demara_battery", g.WeaponKey)
		assert.Equal(t, 25, g.Current.Level)
		assert.Equal(t, 2, g.Current.Craft)
	})
}

func TestSyncItems(t *testing.T) {
	itemSnapshot := func() *refdata.Snapshot {
		snap := emptySnapshot()
		snap.Locale = map[string]refdata.LocaleEntry{
			"basic_chip": {Single: "Basic Chip"},
		}
		return snap
	}

	itemStore := func() *fakeStore {
		store := newFakeStore()
		store.chars = syncCatalog()
		store.weapons = []domain.WeaponCatalogEntry{
			{ID: 14104, Key: "demara_battery", Rarity: 4, Style: "stun", Craftable: true},
		}
		store.itemTypes = map[string]string{"basic_chip": "chip"}
		return store
	}

	t.Run("AppliesReconciledInventory", func(t *testing.T) {
		store := itemStore()
		svc := newService(rosterGame(), store, itemSnapshot())

		err := svc.SyncItems(context.Background())
		require.NoError(t, err)

		require.NotEmpty(t, store.items)
		assert.Contains(t, store.items, itemWrite{"chip", "basic_chip", 0, 42})
	})

	t.Run("PartialCalcFailureStillApplies", func(t *testing.T) {
		store := itemStore()
		game := rosterGame()
		var calls int32
		var mu sync.Mutex
		game.calc = func(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				return nil, fmt.Errorf("rate limited")
			}
			return &api.AvatarCalcData{
				AvatarConsume:     []api.CalcItem{{ID: 100, Name: "Basic Chip"}},
				UserOwnsMaterials: map[string]int{"100": 42},
			}, nil
		}
		svc := newService(game, store, itemSnapshot())

		err := svc.SyncItems(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, store.items)
	})

	t.Run("AllCalcsFailingIsCategoryFailure", func(t *testing.T) {
		store := itemStore()
		game := rosterGame()
		game.calc = func(ctx context.Context, avatarID, weaponID int64) (*api.AvatarCalcData, error) {
			return nil, fmt.Errorf("rate limited")
		}
		svc := newService(game, store, itemSnapshot())

		assert.Error(t, svc.SyncItems(context.Background()))
	})

	t.Run("EmptyCatalogIsCategoryFailure", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(rosterGame(), store, itemSnapshot())

		assert.Error(t, svc.SyncItems(context.Background()))
	})
}

func TestSyncAll(t *testing.T) {
	itemSnapshot := func() *refdata.Snapshot {
		snap := emptySnapshot()
		snap.Locale = map[string]refdata.LocaleEntry{
			"basic_chip": {Single: "Basic Chip"},
		}
		return snap
	}

	t.Run("AllCategoriesSucceed", func(t *testing.T) {
		store := newFakeStore()
		store.chars = syncCatalog()
		store.itemTypes = map[string]string{"basic_chip": "chip"}
		svc := newService(rosterGame(), store, itemSnapshot())

		res := svc.SyncAll(context.Background())

		assert.True(t, res.BatteryOK)
		assert.True(t, res.ItemsOK)
		assert.Equal(t, 3, res.Characters.Success)
		assert.True(t, res.TotalSuccess)
	})

	t.Run("BatteryFailurePreservesCharacterResult", func(t *testing.T) {
		store := newFakeStore()
		store.chars = syncCatalog()
		store.itemTypes = map[string]string{"basic_chip": "chip"}
		game := rosterGame()
		game.energy = func(ctx context.Context) (*api.EnergyData, error) {
			return nil, fmt.Errorf("upstream unavailable")
		}
		svc := newService(game, store, itemSnapshot())

		res := svc.SyncAll(context.Background())

		assert.False(t, res.BatteryOK)
		assert.NotEmpty(t, res.BatteryError)
		assert.Equal(t, 3, res.Characters.Success)
		assert.True(t, res.ItemsOK)
		assert.False(t, res.TotalSuccess)
	})
}
