package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envFrom(map[string]string{
		"PORT":              "8080",
		"DATABASE_URL":      "postgres://localhost/publicmap",
		"SNAPSHOT_INTERVAL": "15m",
		"GEOCODE_RPS":       "2.5",
		"SNAPSHOT_ON_START": "false",
		"CORS_ORIGINS":      " https://a.example , ,https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.SnapshotInterval)
	assert.Equal(t, 2.5, cfg.GeocodeRPS)
	assert.False(t, cfg.SnapshotOnStart)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "system", cfg.SystemActorID)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsBadDuration(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envFrom(map[string]string{"GEOCODE_TIMEOUT": "soon"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingDatabaseURL))

	cfg.DatabaseURL = "postgres://localhost/publicmap"
	cfg.SnapshotTimezone = "Mars/Olympus_Mons"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidTimezone))

	cfg.SnapshotTimezone = "America/Chicago"
	cfg.SnapshotInterval = 0
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidInterval))
}

func TestMergeYAML(t *testing.T) {
	cfg := Defaults()
	doc := []byte("port: \"6060\"\ndb_schema: field\ncors_origins:\n  - https://map.example\n")
	require.NoError(t, Merge(&cfg, doc))

	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, "field", cfg.DBSchema)
	assert.Equal(t, []string{"https://map.example"}, cfg.CORSOrigins)
	// untouched keys keep their defaults
	assert.Equal(t, "UTC", cfg.SnapshotTimezone)
}
