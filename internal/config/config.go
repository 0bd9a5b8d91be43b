package config

import (
	"os"
	"strconv"
	"time"

	"workdesk-service/internal/pkg/token"
)

type AppConfig struct {
	// Server
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// User directory: "postgres" or "memory"
	DirectoryDriver string

	// Session/attempt store: "redis" or "memory"
	StoreDriver string

	// Tokens
	Token token.Config

	// Session lifecycle
	MaxLoginAttempts int
	LockoutWindow    time.Duration
	RefreshThreshold time.Duration
	WatchInterval    time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8000"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		DirectoryDriver: getEnv("DIRECTORY_DRIVER", "memory"),
		StoreDriver:     getEnv("STORE_DRIVER", "redis"),

		Token: token.Config{
			PrivPath:   getEnv("TOKEN_PRIVATE_KEY_PATH", ""),
			PubPath:    getEnv("TOKEN_PUBLIC_KEY_PATH", ""),
			Issuer:     "workdesk-console",
			Audience:   "workdesk-users",
			AccessTTL:  getEnvDuration("SESSION_MAX_AGE", 8*time.Hour),
			RefreshTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			KID:        "workdesk-key",
		},

		MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutWindow:    getEnvDuration("LOCKOUT_WINDOW", 15*time.Minute),
		RefreshThreshold: getEnvDuration("REFRESH_THRESHOLD", 30*time.Minute),
		WatchInterval:    getEnvDuration("WATCH_INTERVAL", 60*time.Second),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
