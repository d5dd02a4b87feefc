package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"CONFIG_FILE", "DATABASE_URL", "PG_DSN", "PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
	"NATS_URL", "NATS_SUBJECT_PREFIX", "FEED_URL", "FEED_USERNAME", "FEED_PASSWORD", "FEED_TIMEOUT_SEC",
	"POLL_INTERVAL_MS", "CYCLE_TIMEOUT_SEC", "ROUTE_CACHE_TTL_MIN", "LOCATION_TTL_SEC", "CATALOG_CHECK_MIN",
	"TZ", "LOG_NATS_SUBJECTS", "METRICS_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://tracker@db:5432/linkki")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://tracker@db:5432/linkki", cfg.DatabaseURL)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "linkki", cfg.NATSSubjectPrefix)
	assert.Equal(t, DefaultFeedURL, cfg.FeedURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 30*time.Second, cfg.CycleTimeout)
	assert.Equal(t, time.Hour, cfg.RouteCacheTTL)
	assert.Equal(t, time.Hour, cfg.LocationTTL)
	assert.Equal(t, 30*time.Minute, cfg.CatalogCheckInterval)
	assert.Equal(t, "Europe/Helsinki", cfg.Location.String())
	assert.False(t, cfg.LogNATSSubjects)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://tracker@db:5432/linkki")
	t.Setenv("POLL_INTERVAL_MS", "5000")
	t.Setenv("ROUTE_CACHE_TTL_MIN", "5")
	t.Setenv("FEED_USERNAME", "user")
	t.Setenv("FEED_PASSWORD", "secret")
	t.Setenv("TZ", "UTC")
	t.Setenv("LOG_NATS_SUBJECTS", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.RouteCacheTTL)
	assert.Equal(t, "user", cfg.FeedUsername)
	assert.Equal(t, "secret", cfg.FeedPassword)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.True(t, cfg.LogNATSSubjects)
}

func TestLoadBuildsDSNFromPGVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PGHOST", "db")
	t.Setenv("PGUSER", "tracker")
	t.Setenv("PGPASSWORD", "p@ss")
	t.Setenv("PGDATABASE", "linkki")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://tracker:p%40ss@db:5432/linkki?sslmode=disable", cfg.DatabaseURL)
}

func TestLoadRequiresDatabase(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"POLL_INTERVAL_MS": "0",
		"FEED_TIMEOUT_SEC": "abc",
		"FEED_URL":         "not a url",
		"TZ":               "Mars/Olympus",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://tracker@db:5432/linkki")
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFileUnderEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tracker.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
databaseURL: postgres://file@db:5432/linkki
natsSubjectPrefix: jkl
pollIntervalMS: 3000
locationTTLSec: 600
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POLL_INTERVAL_MS", "4000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@db:5432/linkki", cfg.DatabaseURL)
	assert.Equal(t, "jkl", cfg.NATSSubjectPrefix)
	assert.Equal(t, 4*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.LocationTTL)
}

func TestLoadConfigFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yml"))

	_, err := Load()
	assert.Error(t, err)
}
