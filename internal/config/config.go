package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
// DATABASE_URL is the only hard requirement; a missing ADMIN_PASSWORD is
// tolerated at startup and reported on login attempts instead.
type Config struct {
	DatabaseURL          string
	AdminPassword        string
	SessionSecret        string
	SessionTTLSeconds    int64
	ProbeTimeoutSeconds  int
	ProbeConcurrency     int
	MetricsDiskPath      string
	MetricsSampleSeconds int
	CorsOrigins          []string
}

func Load() Config {
	return Config{
		DatabaseURL:          mustEnv("DATABASE_URL"),
		AdminPassword:        envOr("ADMIN_PASSWORD", ""),
		SessionSecret:        envOr("ADMIN_SESSION_SECRET", "change-me"),
		SessionTTLSeconds:    int64(envOrInt("SESSION_TTL_SECONDS", 28800)),
		ProbeTimeoutSeconds:  envOrInt("PROBE_TIMEOUT_SECONDS", 30),
		ProbeConcurrency:     envOrInt("PROBE_CONCURRENCY", 16),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "storage"),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 5),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
