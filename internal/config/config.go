package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Common errors
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrInvalidInterval    = errors.New("SNAPSHOT_INTERVAL must be a positive duration")
	ErrInvalidTimeout     = errors.New("GEOCODE_TIMEOUT must be a positive duration")
	ErrInvalidTimezone    = errors.New("SNAPSHOT_TIMEZONE is not a known location")
)

// Config holds everything the public map service reads at startup.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	DBSchema    string `yaml:"db_schema"`
	DBLogLevel  string `yaml:"db_log_level"`

	GoogleMapsAPIKey string        `yaml:"google_maps_api_key"`
	GeocodeTimeout   time.Duration `yaml:"geocode_timeout"`
	GeocodeRPS       float64       `yaml:"geocode_rps"`

	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	SnapshotTimezone string        `yaml:"snapshot_timezone"`
	SnapshotOnStart  bool          `yaml:"snapshot_on_start"`

	RedisAddress  string `yaml:"redis_address"`
	RedisPassword string `yaml:"redis_password"`
	RedisPrefix   string `yaml:"redis_prefix"`

	CORSOrigins   []string `yaml:"cors_origins"`
	SystemActorID string   `yaml:"system_actor_id"`
}

// Defaults returns the configuration used when neither the YAML file nor the
// environment set a value.
func Defaults() Config {
	return Config{
		Port:             "5050",
		DBSchema:         "publicmap",
		DBLogLevel:       "warn",
		GeocodeTimeout:   5 * time.Second,
		GeocodeRPS:       10,
		SnapshotInterval: time.Hour,
		SnapshotTimezone: "UTC",
		SnapshotOnStart:  true,
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
		},
		SystemActorID: "system",
	}
}

// LoadFromEnv loads configuration from environment variables, layered on top
// of the YAML file named by PUBLICMAP_CONFIG when it is set.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - DATABASE_URL: Postgres DSN (required)
//   - DB_SCHEMA: schema holding the public map tables (default: publicmap)
//   - DB_LOG_LEVEL: silent, error, warn or info (default: warn)
//   - GOOGLE_MAPS_API_KEY: geocoding key; geocoding reports CONFIG without it
//   - GEOCODE_TIMEOUT: upstream timeout (default: 5s)
//   - GEOCODE_RPS: upstream request rate (default: 10)
//   - SNAPSHOT_INTERVAL: scheduled refresh interval (default: 1h)
//   - SNAPSHOT_TIMEZONE: location that defines "today" (default: UTC)
//   - SNAPSHOT_ON_START: refresh once at boot (default: true)
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_PREFIX: optional refresh lock
//   - CORS_ORIGINS: comma separated allow-list
//   - SYSTEM_ACTOR_ID: actor recorded when a caller sends no identity (default: system)
func LoadFromEnv() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("PUBLICMAP_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := Merge(&cfg, raw); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge overlays YAML document raw onto cfg. Keys absent from the document
// keep their current value.
func Merge(cfg *Config, raw []byte) error {
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("DB_SCHEMA", &cfg.DBSchema)
	str("DB_LOG_LEVEL", &cfg.DBLogLevel)
	str("GOOGLE_MAPS_API_KEY", &cfg.GoogleMapsAPIKey)
	str("SNAPSHOT_TIMEZONE", &cfg.SnapshotTimezone)
	str("REDIS_ADDRESS", &cfg.RedisAddress)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("REDIS_PREFIX", &cfg.RedisPrefix)
	str("SYSTEM_ACTOR_ID", &cfg.SystemActorID)

	if err := dur("GEOCODE_TIMEOUT", &cfg.GeocodeTimeout); err != nil {
		return err
	}
	if err := dur("SNAPSHOT_INTERVAL", &cfg.SnapshotInterval); err != nil {
		return err
	}

	if v := strings.TrimSpace(getenv("GEOCODE_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GEOCODE_RPS: %w", err)
		}
		cfg.GeocodeRPS = rps
	}
	if v := strings.TrimSpace(getenv("SNAPSHOT_ON_START")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SNAPSHOT_ON_START: %w", err)
		}
		cfg.SnapshotOnStart = b
	}
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	return nil
}

// Validate checks the configuration before any connection is opened.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.SnapshotInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.GeocodeTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves SnapshotTimezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SnapshotTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, c.SnapshotTimezone)
	}
	return loc, nil
}
