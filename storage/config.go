package storage

import (
	"errors"
	"fmt"

	"github.com/kbukum/scribe/util"
)

// Default configuration values.
const (
	DefaultBasePath    = "audio_data"
	DefaultMaxFileSize = "100MB"
)

// Config holds storage configuration.
type Config struct {
	// BasePath is the root directory for uploads and artifacts.
	BasePath string `mapstructure:"base_path" json:"base_path"`

	// MaxFileSize caps a single upload (e.g. "100MB").
	MaxFileSize string `mapstructure:"max_file_size" json:"max_file_size"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return errors.New("storage: base_path is required")
	}
	if _, err := util.ParseSize(c.MaxFileSize); err != nil {
		return fmt.Errorf("storage: max_file_size: %w", err)
	}
	return nil
}

// MaxFileSizeBytes returns MaxFileSize in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return util.ParseSizeOr(c.MaxFileSize, 100<<20)
}
