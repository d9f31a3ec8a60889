// Package config loads application configuration from environment variables.
// All variables use the PREPPY_ prefix. A .env file in the working directory
// is read first when present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Issues   IssuesConfig
	Doubts   DoubtsConfig
	Events   EventsConfig
	AI       AIConfig
	Wellness WellnessConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // websocket origin patterns
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig selects the key-value store behind the daily cache and dashboard.
type CacheConfig struct {
	Driver string // memory or redis
	URL    string
	Prefix string
}

// IssuesConfig selects the issue store.
type IssuesConfig struct {
	Driver string // memory or postgres
}

// DoubtsConfig selects the tutor conversation store.
type DoubtsConfig struct {
	Driver string // memory or postgres
}

// EventsConfig selects the analytics event sink.
type EventsConfig struct {
	Driver string // none or postgres
}

// AIConfig holds the Gemini settings.
type AIConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	Probe            bool
	ProbeTimeoutMS   int
	DailyTokenBudget int // 0 means unlimited
}

// WellnessConfig holds daily wellness cache settings.
type WellnessConfig struct {
	CacheKey     string
	CacheVersion string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads the given dotenv file if it exists, then the environment.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("PREPPY_SERVER_PORT", 8080),
			Host:           envStr("PREPPY_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: envList("PREPPY_SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PREPPY_DATABASE_URL", ""),
			MaxConns: envInt("PREPPY_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("PREPPY_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			Driver: envStr("PREPPY_CACHE_DRIVER", DriverMemory),
			URL:    envStr("PREPPY_CACHE_URL", "redis://localhost:6379"),
			Prefix: envStr("PREPPY_CACHE_PREFIX", ""),
		},
		Issues: IssuesConfig{
			Driver: envStr("PREPPY_ISSUES_DRIVER", DriverMemory),
		},
		Doubts: DoubtsConfig{
			Driver: envStr("PREPPY_DOUBTS_DRIVER", DriverMemory),
		},
		Events: EventsConfig{
			Driver: envStr("PREPPY_EVENTS_DRIVER", DriverNone),
		},
		AI: AIConfig{
			APIKey:           envStr("PREPPY_AI_GOOGLE_API_KEY", os.Getenv("API_KEY")),
			Model:            envStr("PREPPY_AI_MODEL", "gemini-3-flash-preview"),
			BaseURL:          envStr("PREPPY_AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Probe:            envBool("PREPPY_AI_PROBE", true),
			ProbeTimeoutMS:   envInt("PREPPY_AI_PROBE_TIMEOUT_MS", 2000),
			DailyTokenBudget: envInt("PREPPY_AI_DAILY_TOKEN_BUDGET", 0),
		},
		Wellness: WellnessConfig{
			CacheKey:     envStr("PREPPY_WELLNESS_CACHE_KEY", "preppysphere_daily_wellness"),
			CacheVersion: envStr("PREPPY_WELLNESS_CACHE_VERSION", "2"),
		},
		Log: LogConfig{
			Level:  envStr("PREPPY_LOG_LEVEL", "info"),
			Format: envStr("PREPPY_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks driver names and the settings they require. A missing
// API key is not an error: AI operations report it per request.
func (c *Config) Validate() error {
	if c.Cache.Driver != DriverMemory && c.Cache.Driver != DriverRedis {
		return fmt.Errorf("PREPPY_CACHE_DRIVER must be 'memory' or 'redis', got %q", c.Cache.Driver)
	}
	if c.Issues.Driver != DriverMemory && c.Issues.Driver != DriverPostgres {
		return fmt.Errorf("PREPPY_ISSUES_DRIVER must be 'memory' or 'postgres', got %q", c.Issues.Driver)
	}
	if c.Doubts.Driver != DriverMemory && c.Doubts.Driver != DriverPostgres {
		return fmt.Errorf("PREPPY_DOUBTS_DRIVER must be 'memory' or 'postgres', got %q", c.Doubts.Driver)
	}
	if c.Events.Driver != DriverNone && c.Events.Driver != DriverPostgres {
		return fmt.Errorf("PREPPY_EVENTS_DRIVER must be 'none' or 'postgres', got %q", c.Events.Driver)
	}
	if c.NeedsDatabase() && c.Database.URL == "" {
		return fmt.Errorf("PREPPY_DATABASE_URL is required for the postgres driver")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("PREPPY_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Wellness.CacheVersion) == "" {
		return fmt.Errorf("PREPPY_WELLNESS_CACHE_VERSION must not be empty")
	}
	if c.AI.DailyTokenBudget < 0 {
		return fmt.Errorf("PREPPY_AI_DAILY_TOKEN_BUDGET must not be negative")
	}
	return nil
}

// NeedsDatabase reports whether any store uses PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Issues.Driver == DriverPostgres ||
		c.Doubts.Driver == DriverPostgres ||
		c.Events.Driver == DriverPostgres
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
