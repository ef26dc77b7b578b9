package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
app:
  name: scheduler
  environment: development
  port: 8080
timezone:
  business: America/New_York
booking:
  slot_interval_minutes: 15
  slot_capacity: 4
limits:
  defaults:
    max_checkout_hours: 48
    max_renewal_hours: 24
    max_total_hours: 96
    max_advance_days: 30
  group_overrides:
    10:
      max_checkout_hours: 72
    20:
      max_checkout_hours: 0
database:
  driver: sqlite
  filename: scheduler.db
inventory:
  base_url: http://inventory.local
  cache_backend: memory
  cache_ttl_minutes: 10
  tracked_model_ids: [3, 7]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("INVENTORY_API_TOKEN", "token-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "scheduler" || cfg.App.Port != 8080 {
		t.Fatalf("app = %+v", cfg.App)
	}
	if cfg.Timezone.Business != "America/New_York" || cfg.Timezone.External != "" {
		t.Fatalf("timezone = %+v", cfg.Timezone)
	}
	if cfg.Booking.SlotIntervalMinutes != 15 || cfg.Booking.SlotCapacity != 4 {
		t.Fatalf("booking = %+v", cfg.Booking)
	}
	if cfg.Limits.Defaults.MaxCheckoutHours != 48 {
		t.Fatalf("defaults = %+v", cfg.Limits.Defaults)
	}
	override, ok := cfg.Limits.GroupOverrides[20]
	if !ok || override.MaxCheckoutHours == nil || *override.MaxCheckoutHours != 0 {
		t.Fatalf("group 20 override = %+v, want an explicit 0", override)
	}
	if cfg.Inventory.APIToken != "token-123" {
		t.Fatalf("APIToken = %q, want value from environment", cfg.Inventory.APIToken)
	}
	if len(cfg.Inventory.TrackedModelIDs) != 2 {
		t.Fatalf("TrackedModelIDs = %v", cfg.Inventory.TrackedModelIDs)
	}
	if cfg.CacheTTL() != 10*time.Minute {
		t.Fatalf("CacheTTL = %s, want 10m", cfg.CacheTTL())
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("INVENTORY_API_TOKEN=from-env-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("INVENTORY_API_TOKEN", "")
	os.Unsetenv("INVENTORY_API_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Inventory.APIToken != "from-env-file" {
		t.Fatalf("APIToken = %q, want value from .env file", cfg.Inventory.APIToken)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var cfg Config
		cfg.App.Name = "scheduler"
		cfg.App.Port = 8080
		cfg.Timezone.Business = "America/New_York"
		cfg.Booking.SlotIntervalMinutes = 15
		cfg.Database.Driver = "sqlite"
		cfg.Database.Filename = "scheduler.db"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing_app_name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "missing_port", mutate: func(c *Config) { c.App.Port = 0 }, wantErr: true},
		{name: "missing_business_timezone", mutate: func(c *Config) { c.Timezone.Business = "" }, wantErr: true},
		{name: "bad_business_timezone", mutate: func(c *Config) { c.Timezone.Business = "Mars/Olympus" }, wantErr: true},
		{name: "bad_external_timezone", mutate: func(c *Config) { c.Timezone.External = "Not/AZone" }, wantErr: true},
		{name: "valid_external_timezone", mutate: func(c *Config) { c.Timezone.External = "Europe/London" }},
		{name: "zero_slot_interval", mutate: func(c *Config) { c.Booking.SlotIntervalMinutes = 0 }, wantErr: true},
		{name: "negative_capacity", mutate: func(c *Config) { c.Booking.SlotCapacity = -1 }, wantErr: true},
		{name: "unlimited_capacity", mutate: func(c *Config) { c.Booking.SlotCapacity = 0 }},
		{name: "unsupported_driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{name: "sqlite_without_filename", mutate: func(c *Config) { c.Database.Filename = "" }, wantErr: true},
		{name: "redis_without_url", mutate: func(c *Config) { c.Inventory.CacheBackend = "redis" }, wantErr: true},
		{name: "redis_with_url", mutate: func(c *Config) {
			c.Inventory.CacheBackend = "redis"
			c.Inventory.RedisURL = "redis://localhost:6379/0"
		}},
		{name: "unknown_cache_backend", mutate: func(c *Config) { c.Inventory.CacheBackend = "memcached" }, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := base()
			test.mutate(&cfg)
			err := cfg.Validate()
			if test.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !test.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCacheTTLDefault(t *testing.T) {
	var cfg Config
	if cfg.CacheTTL() != 5*time.Minute {
		t.Fatalf("CacheTTL = %s, want the 5m default", cfg.CacheTTL())
	}
}
