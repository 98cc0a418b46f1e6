// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the fully resolved gateway configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8787".
	Addr string

	// GeminiAPIKey authenticates chat and music model calls.
	GeminiAPIKey string

	// ChatModel is the text conversation model identifier.
	ChatModel string

	// AllowedOrigin is the CORS origin allowed to call the API. Empty
	// disables CORS headers.
	AllowedOrigin string

	// SessionTTL is how long an idle session survives before the store
	// may evict it.
	SessionTTL time.Duration

	// ShutdownGrace bounds graceful shutdown on SIGTERM.
	ShutdownGrace time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// LoadFromEnv reads configuration from CALMI_* variables, applying
// defaults and failing fast on values that cannot possibly work.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:          envOr("CALMI_ADDR", ":8787"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		ChatModel:     envOr("CALMI_CHAT_MODEL", ""),
		AllowedOrigin: envOr("CALMI_ALLOWED_ORIGIN", ""),
		SessionTTL:    envDurationOr("CALMI_SESSION_TTL", 24*time.Hour),
		ShutdownGrace: envDurationOr("CALMI_SHUTDOWN_GRACE", 10*time.Second),
		LogLevel:      envOr("CALMI_LOG_LEVEL", "info"),
	}
	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("CALMI_SESSION_TTL must be positive")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("CALMI_LOG_LEVEL %q is not one of debug, info, warn, error", cfg.LogLevel)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
