package queue

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultTopic          = "transcription.tasks"
	DefaultGroupID        = "scribe-workers"
	DefaultReconnectDelay = "5s"
)

// Config holds Kafka connection and queue configuration.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`

	// Topic carries task descriptors.
	Topic string `mapstructure:"topic"`

	// GroupID is the worker consumer group.
	GroupID string `mapstructure:"group_id"`

	// ReconnectDelay is the fixed wait before recreating a failed reader.
	ReconnectDelay string `mapstructure:"reconnect_delay"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	WriteTimeout      string `mapstructure:"write_timeout"`
	DialTimeout       string `mapstructure:"dial_timeout"`
	SessionTimeout    string `mapstructure:"session_timeout"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.GroupID == "" {
		c.GroupID = DefaultGroupID
	}
	if c.ReconnectDelay == "" {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.EnableSASL && c.SASLMechanism == "" {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("queue: brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("queue: topic is required")
	}
	for _, d := range []struct{ name, val string }{
		{"reconnect_delay", c.ReconnectDelay},
		{"write_timeout", c.WriteTimeout},
		{"dial_timeout", c.DialTimeout},
		{"session_timeout", c.SessionTimeout},
		{"heartbeat_interval", c.HeartbeatInterval},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("queue: invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("queue: unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("queue: SASL username is required")
		}
	}
	return nil
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
