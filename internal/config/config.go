package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultFeedURL = "https://data.waltti.fi/jyvaskyla/api/gtfsrealtime/v1.0/feed/vehicleposition"

type Config struct {
	DatabaseURL          string
	NATSURL              string
	NATSSubjectPrefix    string
	FeedURL              string
	FeedUsername         string
	FeedPassword         string
	FeedTimeout          time.Duration
	PollInterval         time.Duration
	CycleTimeout         time.Duration
	RouteCacheTTL        time.Duration
	LocationTTL          time.Duration
	CatalogCheckInterval time.Duration
	Location             *time.Location
	LogNATSSubjects      bool
	MetricsAddr          string
}

// settings are the raw values before durations and the time zone are
// derived. The optional CONFIG_FILE fills them first, the environment
// overrides.
type settings struct {
	DatabaseURL       string `yaml:"databaseURL"`
	NATSURL           string `yaml:"natsURL" validate:"required"`
	NATSSubjectPrefix string `yaml:"natsSubjectPrefix" validate:"required,excludesall=*>"`
	FeedURL           string `yaml:"feedURL" validate:"required,url"`
	FeedUsername      string `yaml:"feedUsername"`
	FeedPassword      string `yaml:"feedPassword"`
	FeedTimeoutSec    int    `yaml:"feedTimeoutSec" validate:"gt=0"`
	PollIntervalMS    int    `yaml:"pollIntervalMS" validate:"gt=0"`
	CycleTimeoutSec   int    `yaml:"cycleTimeoutSec" validate:"gt=0"`
	RouteCacheTTLMin  int    `yaml:"routeCacheTTLMin" validate:"gt=0"`
	LocationTTLSec    int    `yaml:"locationTTLSec" validate:"gt=0"`
	CatalogCheckMin   int    `yaml:"catalogCheckMin" validate:"gt=0"`
	TZ                string `yaml:"tz"`
	LogNATSSubjects   bool   `yaml:"logNATSSubjects"`
	MetricsAddr       string `yaml:"metricsAddr"`
}

func defaults() settings {
	return settings{
		NATSURL:           "nats://127.0.0.1:4222",
		NATSSubjectPrefix: "linkki",
		FeedURL:           DefaultFeedURL,
		FeedTimeoutSec:    15,
		PollIntervalMS:    2000,
		CycleTimeoutSec:   30,
		RouteCacheTTLMin:  60,
		LocationTTLSec:    3600,
		CatalogCheckMin:   30,
		TZ:                "Europe/Helsinki",
	}
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	s := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := &Config{
		NATSURL:              s.NATSURL,
		NATSSubjectPrefix:    s.NATSSubjectPrefix,
		FeedURL:              s.FeedURL,
		FeedUsername:         s.FeedUsername,
		FeedPassword:         s.FeedPassword,
		FeedTimeout:          time.Duration(s.FeedTimeoutSec) * time.Second,
		PollInterval:         time.Duration(s.PollIntervalMS) * time.Millisecond,
		CycleTimeout:         time.Duration(s.CycleTimeoutSec) * time.Second,
		RouteCacheTTL:        time.Duration(s.RouteCacheTTLMin) * time.Minute,
		LocationTTL:          time.Duration(s.LocationTTLSec) * time.Second,
		CatalogCheckInterval: time.Duration(s.CatalogCheckMin) * time.Minute,
		LogNATSSubjects:      s.LogNATSSubjects,
		MetricsAddr:          s.MetricsAddr,
	}

	dsn, err := databaseURL(s.DatabaseURL)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dsn

	// Time zone
	if s.TZ == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(s.TZ)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func (s *settings) applyEnv() error {
	s.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN"), s.DatabaseURL)
	s.NATSURL = getenvDefault("NATS_URL", s.NATSURL)
	s.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", s.NATSSubjectPrefix)
	s.FeedURL = getenvDefault("FEED_URL", s.FeedURL)
	s.FeedUsername = getenvDefault("FEED_USERNAME", s.FeedUsername)
	s.FeedPassword = getenvDefault("FEED_PASSWORD", s.FeedPassword)
	s.TZ = getenvDefault("TZ", s.TZ)
	s.MetricsAddr = getenvDefault("METRICS_ADDR", s.MetricsAddr)

	ints := []struct {
		key string
		dst *int
	}{
		{"FEED_TIMEOUT_SEC", &s.FeedTimeoutSec},
		{"POLL_INTERVAL_MS", &s.PollIntervalMS},
		{"CYCLE_TIMEOUT_SEC", &s.CycleTimeoutSec},
		{"ROUTE_CACHE_TTL_MIN", &s.RouteCacheTTLMin},
		{"LOCATION_TTL_SEC", &s.LocationTTLSec},
		{"CATALOG_CHECK_MIN", &s.CatalogCheckMin},
	}
	for _, it := range ints {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s: %q", it.key, v)
		}
		*it.dst = n
	}

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			s.LogNATSSubjects = true
		default:
			s.LogNATSSubjects = false
		}
	}
	return nil
}

// databaseURL prefers an explicit DSN, else builds one from PG* vars.
func databaseURL(dsn string) (string, error) {
	if dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
