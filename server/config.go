package server

import (
	"fmt"
	"time"
)

// Config holds HTTP server configuration.
type Config struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout     int    `mapstructure:"idle_timeout"`  // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	// MaxBodySize bounds request bodies, e.g. "100MB". Uploads larger than
	// this are cut off while reading.
	MaxBodySize string `mapstructure:"max_body_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 300
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 300
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "512MB"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("http timeouts must be non-negative")
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
