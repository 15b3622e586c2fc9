package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"roombooking/internal/models"
)

// SQLiteBusyTimeout is how long a writer waits on a locked database file.
// A Redis room lock must outlive it, otherwise a holder stuck waiting on
// SQLite can lose the lock before it commits.
const SQLiteBusyTimeout = 5 * time.Second

type Config struct {
	HTTP struct {
		Port      int `yaml:"port"`
		RateLimit struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Locking struct {
		// Backend is "local" (in-process lock table) or "redis" (shared across instances).
		Backend         string `yaml:"backend"`
		TTLSeconds      int    `yaml:"ttl_seconds"`
		RetryIntervalMs int    `yaml:"retry_interval_ms"`
	} `yaml:"locking"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		// Timezone decides which calendar day counts as "today".
		Timezone string `yaml:"timezone"`
	} `yaml:"booking"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`

	Rooms []RoomConfig `yaml:"rooms"`
}

// BackupConfig controls periodic database snapshots.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// RoomConfig seeds one catalog entry. Price is a decimal string, e.g. "100.00".
type RoomConfig struct {
	Name        string `yaml:"name"`
	Capacity    int    `yaml:"capacity"`
	PricePerDay string `yaml:"price_per_day"`
}

// Load reads the YAML config at path, after loading an optional .env next to the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimit.RequestsPerSecond <= 0 {
		c.HTTP.RateLimit.RequestsPerSecond = 10
	}
	if c.HTTP.RateLimit.Burst <= 0 {
		c.HTTP.RateLimit.Burst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/roombooking.db"
	}
	if c.Locking.Backend == "" {
		c.Locking.Backend = "local"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "roombooking"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Locking.Backend {
	case "local":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("locking.backend=redis requires redis.address")
		}
		if c.LockTTL() <= SQLiteBusyTimeout {
			return fmt.Errorf("locking.ttl_seconds must exceed the %s database busy timeout", SQLiteBusyTimeout)
		}
	default:
		return fmt.Errorf("unknown locking.backend %q", c.Locking.Backend)
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("booking.timezone: %w", err)
	}
	for i := range c.Rooms {
		if _, err := c.Rooms[i].Room(); err != nil {
			return fmt.Errorf("rooms[%d]: %w", i, err)
		}
	}
	return nil
}

// Location returns the timezone used to derive today's date.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) LockTTL() time.Duration {
	if c.Locking.TTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Locking.TTLSeconds) * time.Second
}

func (c *Config) LockRetryInterval() time.Duration {
	if c.Locking.RetryIntervalMs <= 0 {
		return 25 * time.Millisecond
	}
	return time.Duration(c.Locking.RetryIntervalMs) * time.Millisecond
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// Room converts the seed entry into a catalog room.
func (rc RoomConfig) Room() (*models.Room, error) {
	cents, err := models.ParseCents(rc.PricePerDay)
	if err != nil {
		return nil, err
	}
	room := &models.Room{Name: rc.Name, Capacity: rc.Capacity, PricePerDayCents: cents}
	if err := room.Validate(); err != nil {
		return nil, err
	}
	return room, nil
}
