package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"planner-sync/internal/config"
	"planner-sync/internal/constants"
	"planner-sync/internal/domain"
)

// LocaleEntry is one locale string table row: either a single display
// name (untiered item) or an ordered name list (tiered item, index =
// tier).
type LocaleEntry struct {
	Single string
	Tiered []string
}

func (e *LocaleEntry) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &e.Tiered)
	}
	return json.Unmarshal(b, &e.Single)
}

// Snapshot is the parsed reference-data bundle. Immutable for the
// duration of a sync session; freshness is the snapshot source's
// concern, not ours.
type Snapshot struct {
	Tables domain.ReferenceTables
	Locale map[string]LocaleEntry
}

// snapshotFile is the declared wire schema of the snapshot bundle.
type snapshotFile struct {
	Characters map[string]struct {
		BaseHP      int   `json:"base_hp"`
		GrowthHP    int   `json:"growth_hp"`
		CoreSkillHP []int `json:"core_skill_hp"`
		AscensionHP []int `json:"ascension_hp"`
	} `json:"characters"`
	Weapons map[string]struct {
		BaseATK int `json:"base_atk"`
	} `json:"weapons"`
	WeaponCommon struct {
		LevelGrowthRate  []int `json:"level_growth_rate"`
		AscensionATKRate []int `json:"ascension_atk_rate"`
	} `json:"weapon_common"`
	Locale map[string]LocaleEntry `json:"locale"`
}

const cacheFileName = "refdata.json"

// Loader fetches the reference snapshot from its source URL, falling
// back to (and refreshing) a local file cache.
type Loader struct {
	url      string
	cacheDir string
	client   *fasthttp.Client
	logger   zerolog.Logger
}

func NewLoader(cfg *config.Config, logger zerolog.Logger) *Loader {
	return &Loader{
		url:      cfg.RefDataURL,
		cacheDir: cfg.CacheDir,
		client: &fasthttp.Client{
			ReadTimeout:  constants.RefDataTimeout,
			WriteTimeout: constants.RefDataTimeout,
		},
		logger: logger,
	}
}

// Load returns the current snapshot. A fetch failure falls back to the
// cached copy when one exists.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := l.fetch(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("snapshot fetch failed, trying local cache")
		raw, err = os.ReadFile(l.cachePath())
		if err != nil {
			return nil, fmt.Errorf("reference data unavailable: %w", err)
		}
	} else {
		if err := os.MkdirAll(l.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(l.cachePath(), raw, 0o644); err != nil {
				l.logger.Warn().Err(err).Msg("failed to write snapshot cache")
			}
		}
	}

	return Parse(raw)
}

func (l *Loader) cachePath() string {
	return filepath.Join(l.cacheDir, cacheFileName)
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if l.url == "" {
		return nil, fmt.Errorf("no snapshot URL configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := l.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := l.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("snapshot fetch error: %d", resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// Parse decodes a snapshot bundle.
func Parse(raw []byte) (*Snapshot, error) {
	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("malformed snapshot: %w", err)
	}

	snap := &Snapshot{
		Tables: domain.ReferenceTables{
			Characters:    make(map[int64]domain.CharacterStatTable, len(file.Characters)),
			WeaponBaseATK: make(map[int64]int, len(file.Weapons)),
			WeaponCommon: domain.WeaponCommonTable{
				LevelGrowthRate:  file.WeaponCommon.LevelGrowthRate,
				AscensionATKRate: file.WeaponCommon.AscensionATKRate,
			},
		},
		Locale: file.Locale,
	}

	for idStr, c := range file.Characters {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed character id %q in snapshot", idStr)
		}
		snap.Tables.Characters[id] = domain.CharacterStatTable{
			BaseHP:      c.BaseHP,
			GrowthHP:    c.GrowthHP,
			CoreSkillHP: c.CoreSkillHP,
			AscensionHP: c.AscensionHP,
		}
	}
	for idStr, w := range file.Weapons {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed weapon id %q in snapshot", idStr)
		}
		snap.Tables.WeaponBaseATK[id] = w.BaseATK
	}

	return snap, nil
}
