// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
)

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string

	// Storage
	Store  string
	DBPath string

	// Logging
	LogLevel string

	// Optional scenario loaded into an empty store at startup
	SeedScenario string
}

// Load reads the given .env files (default ".env"; missing files are
// ignored) and then the process environment. Real environment variables win
// over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	store := strings.ToLower(getEnv("STORE", StoreMemory))
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		Store:        store,
		DBPath:       getEnv("DB_PATH", DefaultDBPath(store)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		SeedScenario: getEnv("SEED_SCENARIO", ""),
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StoreBolt:
		if c.DBPath == "" {
			problems = append(problems, fmt.Sprintf("database path cannot be empty when using %s store", c.Store))
		} else if c.DBPath != ":memory:" {
			dir := filepath.Dir(c.DBPath)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
		if c.Store == StoreBolt && c.DBPath == ":memory:" {
			problems = append(problems, "bolt store needs a file path, not :memory:")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store '%s': must be one of [memory sqlite bolt]", c.Store))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// DefaultDBPath is the database file used when DB_PATH is unset.
func DefaultDBPath(store string) string {
	switch store {
	case StoreSQLite:
		return "./data/ledger.db"
	case StoreBolt:
		return "./data/ledger.bolt"
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
