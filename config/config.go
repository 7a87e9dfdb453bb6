package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets never get defaults here; they come from the environment or a .env file.
type AppConfig struct {
	AppPort        string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	RanksFile       string
	XPPerCheckpoint int64

	CatalogFile         string
	CatalogBucket       string
	CatalogKey          string
	CatalogSyncInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string

	ProfileSyncURL      string
	ProfileSyncInterval time.Duration
}

// Load reads a .env file when present and then the process environment.
// It returns whether a .env file was found so main can log it once the logger exists.
func Load() (AppConfig, bool, error) {
	envFileFound := godotenv.Load() == nil

	cfg := AppConfig{
		AppPort:        getEnvOrDefault("APP_PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServiceToken:   os.Getenv("GAME_SERVICE_TOKEN"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),

		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogPath:     os.Getenv("LOG_PATH"),
		LogCompress: getEnvOrDefault("LOG_COMPRESS", "false") == "true",

		RanksFile:   os.Getenv("RANKS_FILE"),
		CatalogFile: os.Getenv("CATALOG_FILE"),

		CatalogBucket:     os.Getenv("CATALOG_BUCKET"),
		CatalogKey:        getEnvOrDefault("CATALOG_KEY", "catalog/journeys.json"),
		R2AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),

		ProfileSyncURL: os.Getenv("PROFILE_SYNC_URL"),
	}

	var err error
	if cfg.LogMaxSizeMB, err = intEnv("LOG_MAX_SIZE_MB", 100); err != nil {
		return cfg, envFileFound, err
	}
	if cfg.LogMaxBackups, err = intEnv("LOG_MAX_BACKUPS", 3); err != nil {
		return cfg, envFileFound, err
	}
	if cfg.LogMaxAgeDays, err = intEnv("LOG_MAX_AGE_DAYS", 7); err != nil {
		return cfg, envFileFound, err
	}
	xpPer, err := intEnv("XP_PER_CHECKPOINT", 10)
	if err != nil {
		return cfg, envFileFound, err
	}
	if xpPer <= 0 {
		return cfg, envFileFound, fmt.Errorf("XP_PER_CHECKPOINT must be positive, got %d", xpPer)
	}
	cfg.XPPerCheckpoint = int64(xpPer)

	if cfg.CatalogSyncInterval, err = durationEnv("CATALOG_SYNC_INTERVAL", 15*time.Minute); err != nil {
		return cfg, envFileFound, err
	}
	if cfg.ProfileSyncInterval, err = durationEnv("PROFILE_SYNC_INTERVAL", time.Minute); err != nil {
		return cfg, envFileFound, err
	}

	if cfg.DatabaseURL == "" {
		return cfg, envFileFound, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		return cfg, envFileFound, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}
	return cfg, envFileFound, nil
}

// CatalogFromR2 reports whether object storage is configured for the journey catalog.
func (c AppConfig) CatalogFromR2() bool {
	return c.CatalogBucket != "" && c.R2AccountID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

// splitList trims each comma separated entry and drops empties.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
