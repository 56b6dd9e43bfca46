package redis

import (
	"errors"
	"fmt"
	"time"
)

// Config addresses the Redis instance backing the token cache. Timeouts
// are Go duration strings.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"` // host:port
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`

	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// ApplyDefaults fills unset fields. Enabled is left untouched.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	for _, d := range []struct {
		field *string
		value string
	}{
		{&c.DialTimeout, "5s"},
		{&c.ReadTimeout, "3s"},
		{&c.WriteTimeout, "3s"},
	} {
		if *d.field == "" {
			*d.field = d.value
		}
	}
}

// Validate is a no-op for a disabled cache.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return errors.New("redis: addr is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis: db must be non-negative (got: %d)", c.DB)
	}
	for _, d := range [][2]string{
		{"dial_timeout", c.DialTimeout},
		{"read_timeout", c.ReadTimeout},
		{"write_timeout", c.WriteTimeout},
	} {
		if _, err := time.ParseDuration(d[1]); err != nil {
			return fmt.Errorf("redis: invalid %s %q: %w", d[0], d[1], err)
		}
	}
	return nil
}
