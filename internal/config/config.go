// Package config loads runtime settings from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server needs.
type Config struct {
	// HTTPAddr is the listen address, e.g. ":8080".
	HTTPAddr string

	// DBPath is the SQLite database file. The backup endpoint serves this file.
	DBPath string

	// MetricsAddr, when set, serves /metrics on its own listener (e.g. a
	// loopback or cluster-internal address) instead of behind the login.
	MetricsAddr string

	// SessionSecret signs login tokens.
	SessionSecret string

	// GeneratedSecret is true when SESSION_SECRET was empty and a random
	// secret was made up. Logins then do not survive a restart.
	GeneratedSecret bool

	// SessionTTL is how long a login lasts.
	SessionTTL time.Duration

	// SecureCookies marks login cookies Secure (HTTPS only).
	SecureCookies bool

	// AdminUsername and AdminPassword seed the first account when absent.
	AdminUsername string
	AdminPassword string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Load reads the optional .env files, then the environment.
// Files never override variables that are already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "./data/database.db"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.SecureCookies = strings.EqualFold(os.Getenv("SECURE_COOKIES"), "true")

	if cfg.SessionSecret == "" {
		cfg.SessionSecret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
