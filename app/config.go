// Package app assembles the scribe processes from their configuration: the
// HTTP API and the transcription worker.
package app

import (
	"fmt"
	"time"

	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/engine"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/probe"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcript"
)

// Config is shared by both binaries; each reads the sections it needs.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	HTTP      server.Config        `mapstructure:"http"`
	Database  database.Config      `mapstructure:"database"`
	Kafka     queue.Config         `mapstructure:"kafka"`
	Redis     redis.Config         `mapstructure:"redis"`
	Storage   storage.Config       `mapstructure:"storage"`
	Quota     QuotaConfig          `mapstructure:"quota"`
	Auth      AuthConfig           `mapstructure:"auth"`
	Assembler AssemblerConfig      `mapstructure:"assembler"`
	Probe     probe.Config         `mapstructure:"probe"`
	Engine    engine.Config        `mapstructure:"engine"`
	Telemetry observability.Config `mapstructure:"telemetry"`
}

// QuotaConfig sets the budget of new accounts.
type QuotaConfig struct {
	DefaultTimeLimit int64 `mapstructure:"default_time_limit"` // seconds
}

// AuthConfig tunes bearer token lookups.
type AuthConfig struct {
	TokenCacheTTL string `mapstructure:"token_cache_ttl"`
}

// AssemblerConfig tunes transcript merging.
type AssemblerConfig struct {
	MaxPause float64 `mapstructure:"max_pause"` // seconds
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Probe.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	if c.Quota.DefaultTimeLimit == 0 {
		c.Quota.DefaultTimeLimit = 3600
	}
	if c.Auth.TokenCacheTTL == "" {
		c.Auth.TokenCacheTTL = "10m"
	}
	if c.Assembler.MaxPause == 0 {
		c.Assembler.MaxPause = transcript.DefaultMaxPause
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"service", c.ServiceConfig.Validate()},
		{"http", c.HTTP.Validate()},
		{"database", c.Database.Validate()},
		{"kafka", c.Kafka.Validate()},
		{"redis", c.Redis.Validate()},
		{"storage", c.Storage.Validate()},
		{"probe", c.Probe.Validate()},
		{"engine", c.Engine.Validate()},
		{"telemetry", c.Telemetry.Validate()},
	}
	for _, chk := range checks {
		if chk.err != nil {
			return fmt.Errorf("%s: %w", chk.section, chk.err)
		}
	}
	if c.Quota.DefaultTimeLimit < 0 {
		return fmt.Errorf("quota.default_time_limit must be non-negative (got: %d)", c.Quota.DefaultTimeLimit)
	}
	if c.Assembler.MaxPause < 0 {
		return fmt.Errorf("assembler.max_pause must be non-negative (got: %v)", c.Assembler.MaxPause)
	}
	if _, err := time.ParseDuration(c.Auth.TokenCacheTTL); err != nil {
		return fmt.Errorf("auth.token_cache_ttl: %w", err)
	}
	return nil
}

func (c *Config) tokenCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenCacheTTL)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}
