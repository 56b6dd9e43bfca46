// Package probe determines the playback duration of uploaded audio.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/scribe/process"
)

// Prober reports the duration of an audio file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Config configures the ffprobe prober.
type Config struct {
	Binary  string `mapstructure:"binary"`
	Timeout string `mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffprobe"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("probe: invalid timeout %q: %w", c.Timeout, err)
	}
	return nil
}

// FFprobe reads durations with ffprobe's JSON output. The first audio
// stream's duration wins; the container duration is the fallback.
type FFprobe struct {
	binary  string
	timeout time.Duration
	run     func(ctx context.Context, cmd process.Command) (*process.Result, error)
}

var _ Prober = (*FFprobe)(nil)

// NewFFprobe creates a prober from cfg.
func NewFFprobe(cfg Config) *FFprobe {
	cfg.ApplyDefaults()
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	return &FFprobe{binary: cfg.Binary, timeout: timeout, run: process.Run}
}

// Available reports whether the ffprobe binary is installed.
func (p *FFprobe) Available() bool { return process.Available(p.binary) }

// Duration returns the duration rounded to hundredths of a second.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	res, err := p.run(ctx, process.Command{
		Binary: p.binary,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_entries", "format=duration:stream=codec_type,duration",
			path,
		},
		Timeout: p.timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("probe: %w", err)
	}
	return parseOutput(res.Stdout)
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseOutput(data []byte) (float64, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("probe: decode ffprobe output: %w", err)
	}

	candidates := make([]string, 0, len(out.Streams)+1)
	for _, s := range out.Streams {
		if s.CodecType == "audio" {
			candidates = append(candidates, s.Duration)
		}
	}
	candidates = append(candidates, out.Format.Duration)

	for _, c := range candidates {
		if d, ok := parseSeconds(c); ok {
			return math.Round(d*100) / 100, nil
		}
	}
	return 0, fmt.Errorf("probe: no audio duration reported")
}

func parseSeconds(s string) (float64, bool) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || d <= 0 || math.IsInf(d, 0) || math.IsNaN(d) {
		return 0, false
	}
	return d, true
}
