package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/scribe/logger"
)

// Provider names accepted in Config.Provider.
const (
	ProviderSidecar = "sidecar"
	ProviderOpenAI  = "openai"
)

// RawSegment is one timed piece of text as emitted by an engine. Start and
// End hold whatever the engine produced (numbers, numeric strings or worse).
type RawSegment struct {
	Start   any    `json:"start"`
	End     any    `json:"end"`
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// Engine transcribes an audio file. Implementations must honor ctx
// cancellation and be safe to reuse across tasks.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, diarize bool) ([]RawSegment, error)
}

// HealthChecker is implemented by engines that can report reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Config selects and configures the engine.
type Config struct {
	// Provider is "sidecar" (default) or "openai".
	Provider string `mapstructure:"provider"`
	// Language is an ISO-639-1 hint passed to the engine; empty means auto-detect.
	Language string `mapstructure:"language"`

	Whisper  SidecarConfig `mapstructure:"whisper"`
	Pyannote SidecarConfig `mapstructure:"pyannote"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
}

// SidecarConfig addresses one HTTP sidecar.
type SidecarConfig struct {
	URL     string `mapstructure:"url"`
	Model   string `mapstructure:"model"`
	Timeout string `mapstructure:"timeout"`
}

// OpenAIConfig configures the OpenAI transcription client.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderSidecar
	}
	if c.Whisper.URL == "" {
		c.Whisper.URL = "http://localhost:8387"
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "large-v3"
	}
	if c.Whisper.Timeout == "" {
		c.Whisper.Timeout = "30m"
	}
	if c.Pyannote.URL == "" {
		c.Pyannote.URL = "http://localhost:8388"
	}
	if c.Pyannote.Timeout == "" {
		c.Pyannote.Timeout = "30m"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "whisper-1"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderSidecar:
		for name, d := range map[string]string{"whisper.timeout": c.Whisper.Timeout, "pyannote.timeout": c.Pyannote.Timeout} {
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("engine: invalid %s %q: %w", name, d, err)
			}
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("engine: openai.api_key is required")
		}
	default:
		return fmt.Errorf("engine: unknown provider %q", c.Provider)
	}
	return nil
}

// New builds the configured engine. It is called once per worker process and
// the result is handed to the worker.
func New(cfg Config, log *logger.Logger) (Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.Language, log), nil
	default:
		return NewSidecar(cfg.Whisper, cfg.Pyannote, cfg.Language, log), nil
	}
}

func parseTimeout(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
