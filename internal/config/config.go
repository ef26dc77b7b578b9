// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/limits"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type TimezoneConfig struct {
	// Business is the zone opening hours are expressed in. Required.
	Business string `yaml:"business"`
	// External is the inventory system's zone; empty means same as Business.
	External string `yaml:"external"`
}

type BookingConfig struct {
	SlotIntervalMinutes int `yaml:"slot_interval_minutes"`
	// SlotCapacity is the maximum boundary-events per slot; 0 is unlimited.
	SlotCapacity int `yaml:"slot_capacity"`
}

type LimitsConfig struct {
	Defaults       limits.Limits         `yaml:"defaults"`
	GroupOverrides limits.OverridesTable `yaml:"group_overrides"`
}

type InventoryConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIToken        string `yaml:"-"` // Loaded from environment
	CacheBackend    string `yaml:"cache_backend"` // "memory" or "redis"
	RedisURL        string `yaml:"redis_url"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	// TrackedModelIDs are the hardware models whose stats the background
	// refresh job keeps warm.
	TrackedModelIDs []int64 `yaml:"tracked_model_ids"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`

	Timezone  TimezoneConfig  `yaml:"timezone"`
	Booking   BookingConfig   `yaml:"booking"`
	Limits    LimitsConfig    `yaml:"limits"`
	Database  DatabaseConfig  `yaml:"database"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.Inventory.APIToken = os.Getenv("INVENTORY_API_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}

	// Timezone identifiers must fail fast at load, not at first resolution.
	if c.Timezone.Business == "" {
		return fmt.Errorf("business timezone is required")
	}
	if _, err := time.LoadLocation(c.Timezone.Business); err != nil {
		return fmt.Errorf("invalid business timezone %q: %w", c.Timezone.Business, err)
	}
	if c.Timezone.External != "" {
		if _, err := time.LoadLocation(c.Timezone.External); err != nil {
			return fmt.Errorf("invalid external timezone %q: %w", c.Timezone.External, err)
		}
	}

	if c.Booking.SlotIntervalMinutes <= 0 {
		return fmt.Errorf("slot interval minutes must be positive")
	}
	if c.Booking.SlotCapacity < 0 {
		return fmt.Errorf("slot capacity must not be negative")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Inventory.CacheBackend {
	case "", "memory":
	case "redis":
		if c.Inventory.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unsupported inventory cache backend: %s", c.Inventory.CacheBackend)
	}

	return nil
}

// CacheTTL returns the configured inventory cache TTL, defaulting to five
// minutes.
func (c *Config) CacheTTL() time.Duration {
	if c.Inventory.CacheTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Inventory.CacheTTLMinutes) * time.Minute
}
