package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// DisabledValue turns off the SQLite history store when used as SQLITE_DATABASE
const DisabledValue = "off"

// Config holds all configuration for the dashboard service
type Config struct {
	// Simulation backend
	BackendURL    string
	PollInterval  time.Duration
	ActionTimeout time.Duration

	// HTTP server
	Port           string
	AllowedOrigins []string
	StaticDir      string

	// History
	DatabasePath       string
	HistoryDatabaseURL string
	HistoryEvery       int
	RetentionDuration  time.Duration
	CleanupInterval    time.Duration

	// Map defaults, used until /init answers
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int

	LogLevel string
}

// LoadDotEnv loads .env and then .env.local (which overrides) from dir.
// Missing files are ignored.
func LoadDotEnv(dir string) {
	_ = godotenv.Load(dir + "/.env")
	_ = godotenv.Overload(dir + "/.env.local")
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		// Simulation backend
		BackendURL:    strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:9000"), "/"),
		PollInterval:  time.Duration(getEnvInt("POLL_INTERVAL_MS", 500)) * time.Millisecond,
		ActionTimeout: time.Duration(getEnvInt("ACTION_TIMEOUT_MS", 5000)) * time.Millisecond,

		// HTTP server
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		StaticDir:      getEnv("STATIC_DIR", ""),

		// History
		DatabasePath:       getEnv("SQLITE_DATABASE", "data/fleetview.db"),
		HistoryDatabaseURL: getEnv("HISTORY_DATABASE_URL", ""),
		HistoryEvery:       getEnvInt("HISTORY_EVERY", 10),
		RetentionDuration:  time.Duration(getEnvInt("RETENTION_HOURS", 1)) * time.Hour,
		CleanupInterval:    time.Duration(getEnvInt("CLEANUP_INTERVAL_MIN", 10)) * time.Minute,

		// Map defaults
		MapCenterLat: getEnvFloat("MAP_CENTER_LAT", 39.47),
		MapCenterLon: getEnvFloat("MAP_CENTER_LON", -0.37),
		MapZoom:      getEnvInt("MAP_ZOOM", 14),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate reports configuration that the service cannot run with
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be positive, got %v", c.PollInterval)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("ACTION_TIMEOUT_MS must be positive, got %v", c.ActionTimeout)
	}
	if c.HistoryEvery < 1 {
		return fmt.Errorf("HISTORY_EVERY must be at least 1, got %d", c.HistoryEvery)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// SQLiteEnabled reports whether snapshot history should be written to SQLite
func (c *Config) SQLiteEnabled() bool {
	return c.HistoryDatabaseURL == "" && c.DatabasePath != "" && c.DatabasePath != DisabledValue
}

// ConfigureLogging applies LOG_LEVEL to the global logger
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
