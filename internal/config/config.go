package config

import (
	"os"
	"time"
)

type Config struct {
	APIBaseURL  string
	AuthToken   string
	Environment string
	// Cache
	CacheTTL time.Duration
	// Session-scoped durable storage (upload queue hand-off)
	SessionDBPath string
	// Optional upload policy override file (YAML); empty = embedded default
	UploadPolicyPath string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8000/api"),
		AuthToken:        getEnv("AUTH_TOKEN", ""),
		Environment:      env,
		CacheTTL:         getDuration("CACHE_TTL", DefaultCacheTTL),
		SessionDBPath:    getEnv("SESSION_DB_PATH", "docvault-session.db"),
		UploadPolicyPath: getEnv("UPLOAD_POLICY_PATH", ""),
		// Debug defaults to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
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
