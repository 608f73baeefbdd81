package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// Upstream publisher API.
	APIBaseURL  string
	AccountUID  string
	Region      string
	AuthCookie  string

	// Reference/locale snapshot source.
	RefDataURL string
	CacheDir   string

	DBPath     string
	ServerPort string
	LogLevel   string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		APIBaseURL: getEnv("GAME_API_BASE_URL", "https://api-takumi.example.com"),
		AccountUID: getEnv("GAME_ACCOUNT_UID", ""),
		Region:     getEnv("GAME_REGION", "prod_gf_us"),
		AuthCookie: getEnv("GAME_AUTH_COOKIE", ""),
		RefDataURL: getEnv("REFDATA_URL", ""),
		CacheDir:   getEnv("CACHE_DIR", ".cache"),
		DBPath:     getEnv("DB_PATH", "planner.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if cfg.AccountUID == "" {
		return nil, fmt.Errorf("GAME_ACCOUNT_UID is required")
	}
	if cfg.AuthCookie == "" {
		return nil, fmt.Errorf("GAME_AUTH_COOKIE is required")
	}

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Str("region", cfg.Region).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
