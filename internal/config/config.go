// Package config provides configuration management for Atelier.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig
	Databases  DatabasesConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Observer   ObserverConfig
	Session    SessionConfig
	Scheduling SchedulingConfig
	Jobs       JobsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	MaxBodySize     int64
}

// DatabaseSpec describes one selectable upstream database.
type DatabaseSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	DSN  string `yaml:"dsn"`
}

// DatabasesConfig holds the set of selectable upstream databases plus the
// shared connection-pool settings applied to each.
type DatabasesConfig struct {
	File  string // YAML file listing DatabaseSpec entries; optional
	Specs []DatabaseSpec

	MaxConnections  int
	MinConnections  int
	MaxIdleTime     time.Duration
	MaxConnLifetime time.Duration
}

// Spec returns the database spec with the given id, or nil.
func (d DatabasesConfig) Spec(id string) *DatabaseSpec {
	for i := range d.Specs {
		if d.Specs[i].ID == id {
			return &d.Specs[i]
		}
	}
	return nil
}

// RedisConfig holds Redis-related configuration.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// ObserverConfig holds observer-related configuration.
type ObserverConfig struct {
	EnableLogger bool

	EnableWebSocket     bool
	WebSocketBufferSize int

	BufferSize int
}

// SessionConfig holds the JWT cookie session configuration. The session
// carries only the selected database and planning, never credentials.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// SchedulingConfig holds the planning-engine parameters.
type SchedulingConfig struct {
	DisplayTimezone  string  // display (wall-clock) timezone; storage is UTC
	HalfDayHours     float64 // working hours per half-day slot
	MinHorizon       int     // minimum slot-axis length
	HorizonMargin    int     // slack slots added past the last task
	KeyboardChainCap int     // max tasks in one keyboard push chain
	RowSweepCap      int     // max iterations of the row collision sweep
}

// Location resolves the display timezone.
func (s SchedulingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.DisplayTimezone)
}

// JobsConfig holds the optional background jobs. Empty cron specs disable
// the corresponding job.
type JobsConfig struct {
	ReloadCron    string
	PropagateCron string
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	godotenv.Load()
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("ATELIER_PORT", 8585),
			Host:            getEnv("ATELIER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("ATELIER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("ATELIER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("ATELIER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORS:            getEnvAsBool("ATELIER_CORS_ENABLED", true),
			MaxBodySize:     getEnvAsInt64("ATELIER_MAX_BODY_SIZE", 1<<20),
		},
		Databases: DatabasesConfig{
			File:            getEnv("ATELIER_DATABASES_FILE", ""),
			MaxConnections:  getEnvAsInt("ATELIER_DB_MAX_CONNECTIONS", 20),
			MinConnections:  getEnvAsInt("ATELIER_DB_MIN_CONNECTIONS", 5),
			MaxIdleTime:     getEnvAsDuration("ATELIER_DB_MAX_IDLE_TIME", 30*time.Minute),
			MaxConnLifetime: getEnvAsDuration("ATELIER_DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("ATELIER_REDIS_URL", ""),
			Password: getEnv("ATELIER_REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("ATELIER_REDIS_DB", 0),
			PoolSize: getEnvAsInt("ATELIER_REDIS_POOL_SIZE", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("ATELIER_LOG_LEVEL", "info"),
			Format: getEnv("ATELIER_LOG_FORMAT", "json"),
		},
		Observer: ObserverConfig{
			EnableLogger:        getEnvAsBool("ATELIER_OBSERVER_LOGGER_ENABLED", true),
			EnableWebSocket:     getEnvAsBool("ATELIER_OBSERVER_WEBSOCKET_ENABLED", true),
			WebSocketBufferSize: getEnvAsInt("ATELIER_OBSERVER_WEBSOCKET_BUFFER_SIZE", 256),
			BufferSize:          getEnvAsInt("ATELIER_OBSERVER_BUFFER_SIZE", 100),
		},
		Session: SessionConfig{
			Secret:     getEnv("ATELIER_SESSION_SECRET", ""),
			CookieName: getEnv("ATELIER_SESSION_COOKIE", "atelier_session"),
			TTL:        getEnvAsDuration("ATELIER_SESSION_TTL", 24*time.Hour),
			Secure:     getEnvAsBool("ATELIER_SESSION_SECURE", false),
		},
		Scheduling: SchedulingConfig{
			DisplayTimezone:  getEnv("ATELIER_DISPLAY_TIMEZONE", "Europe/Paris"),
			HalfDayHours:     getEnvAsFloat("ATELIER_HALF_DAY_HOURS", 3.5),
			MinHorizon:       getEnvAsInt("ATELIER_MIN_HORIZON", 60),
			HorizonMargin:    getEnvAsInt("ATELIER_HORIZON_MARGIN", 14),
			KeyboardChainCap: getEnvAsInt("ATELIER_KEYBOARD_CHAIN_CAP", 20),
			RowSweepCap:      getEnvAsInt("ATELIER_ROW_SWEEP_CAP", 50),
		},
		Jobs: JobsConfig{
			ReloadCron:    getEnv("ATELIER_RELOAD_CRON", ""),
			PropagateCron: getEnv("ATELIER_PROPAGATE_CRON", ""),
		},
	}

	if err := cfg.loadDatabases(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDatabases fills Databases.Specs from the YAML file when configured,
// otherwise from the single ATELIER_DATABASE_URL variable.
func (c *Config) loadDatabases() error {
	if c.Databases.File != "" {
		data, err := os.ReadFile(c.Databases.File)
		if err != nil {
			return fmt.Errorf("read %s: %w", c.Databases.File, err)
		}
		var doc struct {
			Databases []DatabaseSpec `yaml:"databases"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", c.Databases.File, err)
		}
		c.Databases.Specs = doc.Databases
		return nil
	}

	if dsn := getEnv("ATELIER_DATABASE_URL", ""); dsn != "" {
		c.Databases.Specs = []DatabaseSpec{{ID: "default", Name: "Default", DSN: dsn}}
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Databases.Specs) == 0 {
		return fmt.Errorf("no databases configured: set ATELIER_DATABASE_URL or ATELIER_DATABASES_FILE")
	}
	seen := make(map[string]bool, len(c.Databases.Specs))
	for _, spec := range c.Databases.Specs {
		if spec.ID == "" || spec.DSN == "" {
			return fmt.Errorf("database entry %q is missing id or dsn", spec.Name)
		}
		if seen[spec.ID] {
			return fmt.Errorf("duplicate database id: %s", spec.ID)
		}
		seen[spec.ID] = true
	}

	if c.Databases.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Databases.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}
	if c.Databases.MinConnections > c.Databases.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Session.Secret != "" && len(c.Session.Secret) < 32 {
		return fmt.Errorf("ATELIER_SESSION_SECRET must be at least 32 characters")
	}

	if _, err := c.Scheduling.Location(); err != nil {
		return fmt.Errorf("invalid ATELIER_DISPLAY_TIMEZONE: %w", err)
	}
	if c.Scheduling.HalfDayHours <= 0 {
		return fmt.Errorf("ATELIER_HALF_DAY_HOURS must be positive")
	}
	if c.Scheduling.MinHorizon < 2 {
		return fmt.Errorf("ATELIER_MIN_HORIZON must be at least 2")
	}
	if c.Scheduling.KeyboardChainCap < 1 {
		return fmt.Errorf("ATELIER_KEYBOARD_CHAIN_CAP must be at least 1")
	}
	if c.Scheduling.RowSweepCap < 1 {
		return fmt.Errorf("ATELIER_ROW_SWEEP_CAP must be at least 1")
	}

	return nil
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
