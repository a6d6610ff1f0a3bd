package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string
	// BaseURL is the public address links in notification emails point at.
	BaseURL string
	// EnsurePageOwner forces every page to have an owner entity; when set,
	// pages created without one are owned by their creator.
	EnsurePageOwner bool
	// Magic link signing
	MagicLinkSecret string
	MagicLinkTTL    time.Duration
	// LogDir, when set, mirrors logs into timestamped files there.
	LogDir string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWKSURL:         getEnv("JWKS_URL", ""),
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     getTablePrefix(env),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		EnsurePageOwner: getEnv("ENSURE_PAGE_OWNER", "true") == "true",
		MagicLinkSecret: getEnv("MAGIC_LINK_SECRET", ""),
		MagicLinkTTL:    getDuration("MAGIC_LINK_TTL", 30*24*time.Hour),
		LogDir:          getEnv("LOG_DIR", ""),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
