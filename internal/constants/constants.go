package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	SyncTimeout        = 60 * time.Second
	RefDataTimeout     = 30 * time.Second
	RequestTimeout     = 90 * time.Second
)

const (
	// BatteryRegenInterval is how long one unit of battery charge takes
	// to restore. Used to reconstruct the absolute "last full" timestamp
	// from the relative countdown the upstream API reports.
	BatteryRegenInterval = 360 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// CalcFanOutLimit caps concurrent per-character calc fetches against
	// the rate-limited upstream endpoint.
	CalcFanOutLimit = 4
)
