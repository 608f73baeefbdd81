package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"planner-sync/internal/constants"
	"planner-sync/internal/domain"
)

// Store is the sqlite-backed planner state adapter: the goal list, the
// inventory and the battery state the sync engine writes into. The sync
// core never assumes anything about the planner beyond this surface.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// GetGoal returns the stored goal for (subjectKey, kind), or nil when
// the subject has never been synced.
func (s *Store) GetGoal(ctx context.Context, subjectKey string, kind domain.GoalKind) (*domain.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_key, kind, weapon_key,
		       current_level, current_ascension, current_craft,
		       target_level, target_ascension, target_craft,
		       skills, created_at, updated_at
		FROM goals WHERE subject_key = ? AND kind = ?`,
		subjectKey, string(kind))

	var g domain.Goal
	var kindStr, skillsJSON string
	err := row.Scan(
		&g.ID, &g.SubjectKey, &kindStr, &g.WeaponKey,
		&g.Current.Level, &g.Current.Ascension, &g.Current.Craft,
		&g.Target.Level, &g.Target.Ascension, &g.Target.Craft,
		&skillsJSON, &g.CreatedAt, &g.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal %s/%s: %w", subjectKey, kind, err)
	}

	g.Kind = domain.GoalKind(kindStr)
	if skillsJSON != "" && skillsJSON != "{}" {
		if err := json.Unmarshal([]byte(skillsJSON), &g.Skills); err != nil {
			return nil, fmt.Errorf("failed to decode skills for goal %s: %w", g.ID, err)
		}
	}
	return &g, nil
}

// UpsertGoal writes a goal, assigning an id and creation time on first
// insert. The (subject_key, kind) pair is the logical identity.
func (s *Store) UpsertGoal(ctx context.Context, g *domain.Goal) error {
	now := time.Now()
	if g.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate goal id: %w", err)
		}
		g.ID = id
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	skillsJSON := "{}"
	if len(g.Skills) > 0 {
		raw, err := json.Marshal(g.Skills)
		if err != nil {
			return fmt.Errorf("failed to encode skills for goal %s: %w", g.SubjectKey, err)
		}
		skillsJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (
			id, subject_key, kind, weapon_key,
			current_level, current_ascension, current_craft,
			target_level, target_ascension, target_craft,
			skills, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_key, kind) DO UPDATE SET
			weapon_key = excluded.weapon_key,
			current_level = excluded.current_level,
			current_ascension = excluded.current_ascension,
			current_craft = excluded.current_craft,
			target_level = excluded.target_level,
			target_ascension = excluded.target_ascension,
			target_craft = excluded.target_craft,
			skills = excluded.skills,
			updated_at = excluded.updated_at`,
		g.ID, g.SubjectKey, string(g.Kind), g.WeaponKey,
		g.Current.Level, g.Current.Ascension, g.Current.Craft,
		g.Target.Level, g.Target.Ascension, g.Target.Craft,
		skillsJSON, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert goal %s/%s: %w", g.SubjectKey, g.Kind, err)
	}
	return nil
}

// ListGoals returns every stored goal, for the status surface.
func (s *Store) ListGoals(ctx context.Context) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_key, kind, weapon_key,
		       current_level, current_ascension, current_craft,
		       target_level, target_ascension, target_craft,
		       skills, created_at, updated_at
		FROM goals ORDER BY subject_key, kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		var g domain.Goal
		var kindStr, skillsJSON string
		if err := rows.Scan(
			&g.ID, &g.SubjectKey, &kindStr, &g.WeaponKey,
			&g.Current.Level, &g.Current.Ascension, &g.Current.Craft,
			&g.Target.Level, &g.Target.Ascension, &g.Target.Craft,
			&skillsJSON, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		g.Kind = domain.GoalKind(kindStr)
		if skillsJSON != "" && skillsJSON != "{}" {
			if err := json.Unmarshal([]byte(skillsJSON), &g.Skills); err != nil {
				return nil, fmt.Errorf("failed to decode skills for goal %s: %w", g.ID, err)
			}
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// SetItem writes one inventory quantity. It reports acceptance rather
// than returning an error: a rejected write is a per-item failure the
// reconciler counts and moves past.
func (s *Store) SetItem(itemType, key string, tier, quantity int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (item_type, item_key, tier, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (item_type, item_key, tier) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`,
		itemType, key, tier, quantity, time.Now(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("item_type", itemType).
			Str("item_key", key).
			Int("tier", tier).
			Msg("failed to write inventory item")
		return false
	}
	return true
}

// SetBattery stores the battery amount and the reconstructed "fully
// charged at" timestamp string.
func (s *Store) SetBattery(ctx context.Context, amount int, fullAt string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO battery_state (id, amount, full_at, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			amount = excluded.amount,
			full_at = excluded.full_at,
			updated_at = excluded.updated_at`,
		amount, fullAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to write battery state: %w", err)
	}
	return nil
}

// CharacterCatalog returns the planner's playable-character catalog.
func (s *Store) CharacterCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, rarity, attribute, style, simul_drop_tag, weekly_boss_tag
		FROM character_catalog ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Key, &e.Rarity, &e.Attribute, &e.Style, &e.SimulDropTag, &e.WeeklyBossTag); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WeaponCatalog returns the planner's weapon catalog.
func (s *Store) WeaponCatalog(ctx context.Context) ([]domain.WeaponCatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, rarity, style, craftable FROM weapon_catalog ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WeaponCatalogEntry
	for rows.Next() {
		var e domain.WeaponCatalogEntry
		if err := rows.Scan(&e.ID, &e.Key, &e.Rarity, &e.Style, &e.Craftable); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ItemTypes returns the planner key to item-type mapping used when
// applying translated inventory writes.
func (s *Store) ItemTypes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, item_type FROM item_catalog`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var key, itemType string
		if err := rows.Scan(&key, &itemType); err != nil {
			return nil, err
		}
		types[key] = itemType
	}
	return types, rows.Err()
}
