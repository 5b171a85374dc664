package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers for learner progress.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// AppConfig is config.yaml. Every field can be overridden from the
// environment after the file is read.
type AppConfig struct {
	Version int `yaml:"version"`
	Server  struct {
		Addr         string  `yaml:"addr" env:"ADVENTURE_ADDR"`
		InstanceID   string  `yaml:"instance_id" env:"ADVENTURE_INSTANCE_ID"`
		PublishRate  float64 `yaml:"publish_rate" env:"ADVENTURE_PUBLISH_RATE"`
		PublishBurst int     `yaml:"publish_burst" env:"ADVENTURE_PUBLISH_BURST"`
	} `yaml:"server"`
	Adventure struct {
		Path  string `yaml:"path" env:"ADVENTURE_PATH"`
		Watch bool   `yaml:"watch" env:"ADVENTURE_WATCH"`
	} `yaml:"adventure"`
	Storage struct {
		Driver     string `yaml:"driver" env:"ADVENTURE_STORAGE"`
		SQLitePath string `yaml:"sqlite_path" env:"ADVENTURE_SQLITE_PATH"`
	} `yaml:"storage"`
	Telemetry struct {
		Postgres     bool   `yaml:"postgres" env:"ADVENTURE_TELEMETRY_POSTGRES"`
		MQTTBroker   string `yaml:"mqtt_broker" env:"ADVENTURE_MQTT_BROKER"`
		MQTTPrefix   string `yaml:"mqtt_prefix" env:"ADVENTURE_MQTT_PREFIX"`
		MQTTOptional bool   `yaml:"mqtt_optional" env:"ADVENTURE_MQTT_OPTIONAL"`
	} `yaml:"telemetry"`
	Player struct {
		ServerURL string        `yaml:"server_url" env:"ADVENTURE_SERVER_URL"`
		LearnerID string        `yaml:"learner_id" env:"ADVENTURE_LEARNER_ID"`
		Timeout   time.Duration `yaml:"timeout" env:"ADVENTURE_TIMEOUT"`
	} `yaml:"player"`
}

// Addr returns the listen address, defaulting to ":8080".
func (c *AppConfig) Addr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

// InstanceID labels stored events and metrics, defaulting to "adventure".
func (c *AppConfig) InstanceID() string {
	if c.Server.InstanceID == "" {
		return "adventure"
	}
	return c.Server.InstanceID
}

// PublishRate returns the allowed publish_event requests per second per client.
func (c *AppConfig) PublishRate() float64 {
	if c.Server.PublishRate <= 0 {
		return 5
	}
	return c.Server.PublishRate
}

// PublishBurst returns the publish_event burst size per client.
func (c *AppConfig) PublishBurst() int {
	if c.Server.PublishBurst <= 0 {
		return 10
	}
	return c.Server.PublishBurst
}

// AdventurePath returns the definition file path.
func (c *AppConfig) AdventurePath() string {
	if c.Adventure.Path == "" {
		return "adventures/dragon.yaml"
	}
	return c.Adventure.Path
}

// StorageDriver returns the progress backend, defaulting to memory.
func (c *AppConfig) StorageDriver() string {
	if c.Storage.Driver == "" {
		return StorageMemory
	}
	return c.Storage.Driver
}

// SQLitePath returns the SQLite database file.
func (c *AppConfig) SQLitePath() string {
	if c.Storage.SQLitePath == "" {
		return "adventure.db"
	}
	return c.Storage.SQLitePath
}

// MQTTPrefix returns the telemetry topic prefix.
func (c *AppConfig) MQTTPrefix() string {
	if c.Telemetry.MQTTPrefix == "" {
		return "adventure/telemetry"
	}
	return c.Telemetry.MQTTPrefix
}

// ServerURL returns the base URL the player talks to.
func (c *AppConfig) ServerURL() string {
	if c.Player.ServerURL == "" {
		return "http://127.0.0.1:8080"
	}
	return c.Player.ServerURL
}

// Timeout bounds each step fetch, defaulting to 10s.
func (c *AppConfig) Timeout() time.Duration {
	if c.Player.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Player.Timeout
}

// Validate checks values that have no sensible default.
func (c *AppConfig) Validate() error {
	switch c.StorageDriver() {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}
	return nil
}

// LoadAppConfig reads path and applies the environment overlay. A missing
// file yields the defaults plus the environment.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{Version: 1}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
		if cfg.Version != 1 {
			return nil, fmt.Errorf("unsupported config.yaml version: %d", cfg.Version)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
