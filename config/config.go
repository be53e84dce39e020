/*
Package config loads server configuration from the environment.

PURPOSE:

	Centralizes every knob the server reads: HTTP port, database path,
	and sweep scheduling. A .env file in the working directory is loaded
	first (development convenience); real environment variables win over
	it, and command-line flags in cmd/server win over both.

ENVIRONMENT VARIABLES:

	PORT            HTTP server port              (default 8080)
	DB_PATH         SQLite database path          (default costs.db)
	SWEEP_INTERVAL  Backfill sweep interval       (default 1h)
	SWEEP_ENABLED   Enable the background sweep   (default true)

SEE ALSO:
  - cmd/server/main.go: flag overrides and wiring
*/
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port          int
	DBPath        string
	SweepInterval time.Duration
	SweepEnabled  bool
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		log.Println("[Config] No .env file, using environment")
	}

	cfg := Config{
		Port:          8080,
		DBPath:        "costs.db",
		SweepInterval: 1 * time.Hour,
		SweepEnabled:  true,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SWEEP_INTERVAL %q: %w", v, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("SWEEP_INTERVAL must be positive, got %q", v)
		}
		cfg.SweepInterval = interval
	}
	if v := os.Getenv("SWEEP_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SWEEP_ENABLED %q: %w", v, err)
		}
		cfg.SweepEnabled = enabled
	}

	return cfg, nil
}
