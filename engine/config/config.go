// Package config holds the engine's tunable settings and their file representation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// ErrInvalid is wrapped by every validation failure returned from Validate and Load.
var ErrInvalid = errors.New("config: invalid value")

// ShadowPCF selects the shadow receiver filter.
type ShadowPCF string

const (
	PCFDisabled ShadowPCF = "disabled"
	PCFX4       ShadowPCF = "x4"
	PCFX16      ShadowPCF = "x16"
)

// Value returns the float written into the world uniform block for this filter mode.
func (p ShadowPCF) Value() float32 {
	switch p {
	case PCFDisabled:
		return 2.0
	case PCFX4:
		return 0.0
	default:
		return 1.0
	}
}

// PresentMode selects how frames are presented to the window surface.
type PresentMode string

const (
	PresentVSync    PresentMode = "vsync"
	PresentUncapped PresentMode = "uncapped"
)

// Quality names a preset for the settings that trade image quality for frame time.
type Quality string

const (
	// QualityCustom leaves every field as written.
	QualityCustom Quality = "custom"
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Apply sets the shadow map size, MSAA, PCF and anisotropy of c to the preset. QualityCustom
// and unknown names change nothing.
func (q Quality) Apply(c *Config) {
	switch q {
	case QualityLow:
		c.ShadowMapSize, c.MSAA, c.ShadowPCF, c.Anisotropy = 1024, 1, PCFDisabled, 1
	case QualityMedium:
		c.ShadowMapSize, c.MSAA, c.ShadowPCF, c.Anisotropy = 2048, 4, PCFX16, 4
	case QualityHigh:
		c.ShadowMapSize, c.MSAA, c.ShadowPCF, c.Anisotropy = 4096, 4, PCFX16, 16
	}
}

// Duration is a time.Duration that reads from strings like "250ms" in YAML and TOML files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText writes the duration in Go duration syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete set of engine settings.
type Config struct {
	// Quality is expanded by Parse before the other keys of a file are decoded, so keys
	// written next to it override the preset.
	Quality         Quality      `yaml:"quality" toml:"quality"`
	FramesInFlight  int          `yaml:"frames_in_flight" toml:"frames_in_flight"`
	ShadowMapSize   uint32       `yaml:"shadow_map_size" toml:"shadow_map_size"`
	ShadowSplitCoef float32      `yaml:"shadow_split_coef" toml:"shadow_split_coef"`
	ShadowPCF       ShadowPCF    `yaml:"shadow_pcf" toml:"shadow_pcf"`
	ShadowDepth     float32      `yaml:"shadow_depth" toml:"shadow_depth"`
	FenceTimeout    Duration     `yaml:"fence_timeout" toml:"fence_timeout"`
	MSAA            uint32       `yaml:"msaa" toml:"msaa"`
	Anisotropy      uint16       `yaml:"anisotropy" toml:"anisotropy"`
	PresentMode     PresentMode  `yaml:"present_mode" toml:"present_mode"`
	ClearColor      common.Color `yaml:"clear_color" toml:"clear_color"`
	AmbientColor    common.Color `yaml:"ambient_color" toml:"ambient_color"`
	BatchWorkers    int          `yaml:"batch_workers" toml:"batch_workers"`
}

// Default returns the settings used when no file is loaded.
func Default() Config {
	return Config{
		Quality:         QualityCustom,
		FramesInFlight:  2,
		ShadowMapSize:   2048,
		ShadowSplitCoef: 0.5,
		ShadowPCF:       PCFX16,
		ShadowDepth:     50,
		MSAA:            1,
		Anisotropy:      1,
		PresentMode:     PresentVSync,
		ClearColor:      common.White,
		AmbientColor:    common.RGB(38, 38, 38),
		BatchWorkers:    4,
	}
}

// Validate checks every field and clamps ShadowSplitCoef into [0, 1].
//
// Returns:
//   - error: a wrapped ErrInvalid naming the first offending field, or nil
func (c *Config) Validate() error {
	switch c.Quality {
	case QualityCustom, QualityLow, QualityMedium, QualityHigh:
	case "":
		c.Quality = QualityCustom
	default:
		return fmt.Errorf("%w: quality must be custom, low, medium or high, got %q", ErrInvalid, c.Quality)
	}
	if c.FramesInFlight < 1 {
		return fmt.Errorf("%w: frames_in_flight must be at least 1, got %d", ErrInvalid, c.FramesInFlight)
	}
	if !common.IsPowerOfTwo(c.ShadowMapSize) {
		return fmt.Errorf("%w: shadow_map_size must be a power of two, got %d", ErrInvalid, c.ShadowMapSize)
	}
	c.ShadowSplitCoef = min(max(c.ShadowSplitCoef, 0), 1)
	switch c.ShadowPCF {
	case PCFDisabled, PCFX4, PCFX16:
	default:
		return fmt.Errorf("%w: shadow_pcf must be disabled, x4 or x16, got %q", ErrInvalid, c.ShadowPCF)
	}
	if c.ShadowDepth <= 0 {
		return fmt.Errorf("%w: shadow_depth must be positive, got %v", ErrInvalid, c.ShadowDepth)
	}
	if c.FenceTimeout < 0 {
		return fmt.Errorf("%w: fence_timeout must not be negative", ErrInvalid)
	}
	if c.MSAA != 1 && c.MSAA != 4 {
		return fmt.Errorf("%w: msaa must be 1 or 4, got %d", ErrInvalid, c.MSAA)
	}
	if c.Anisotropy < 1 || c.Anisotropy > 16 {
		return fmt.Errorf("%w: anisotropy must be in [1, 16], got %d", ErrInvalid, c.Anisotropy)
	}
	switch c.PresentMode {
	case PresentVSync, PresentUncapped:
	default:
		return fmt.Errorf("%w: present_mode must be vsync or uncapped, got %q", ErrInvalid, c.PresentMode)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("%w: batch_workers must be at least 1, got %d", ErrInvalid, c.BatchWorkers)
	}
	return nil
}
