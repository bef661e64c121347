// Package config provides configuration loading and management.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/user/objtrack/pkg/adapters/ffmpegsink"
	"github.com/user/objtrack/pkg/adapters/processtracker"
	"github.com/user/objtrack/pkg/orchestrator"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate and the parse helpers.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the full configuration for objtrack.
type Config struct {
	// Input/Output
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	Container string `yaml:"container"`

	// Tracking
	InitialBox          string        `yaml:"initial_box"`
	Origin              string        `yaml:"origin"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Tracker             TrackerConfig `yaml:"tracker"`

	// Rendering
	Overlay OverlayConfig `yaml:"overlay"`

	// Encoding
	Encoder EncoderConfig `yaml:"encoder"`

	// External tools
	FFmpegPath     string `yaml:"ffmpeg_path"`
	FFprobePath    string `yaml:"ffprobe_path"`
	DecoderThreads int    `yaml:"decoder_threads"`

	// Output artifacts
	Debug          bool   `yaml:"debug"`
	DebugDir       string `yaml:"debug_dir"`
	ThumbnailWidth int    `yaml:"thumbnail_width"`
	SummaryFile    string `yaml:"summary_file"`
	MetricsFile    string `yaml:"metrics_file"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// TrackerConfig configures the external tracker process.
type TrackerConfig struct {
	Command []string `yaml:"command"`
	Level   string   `yaml:"level"`
	Env     []string `yaml:"env"`
}

// OverlayConfig configures the rectangle drawn at each position.
type OverlayConfig struct {
	Color       string  `yaml:"color"`
	StrokeWidth float64 `yaml:"stroke_width"`
}

// EncoderConfig configures the output encoder.
type EncoderConfig struct {
	Codec       string `yaml:"codec"`
	Preset      string `yaml:"preset"`
	Quality     string `yaml:"quality"`
	CRF         int    `yaml:"crf"`
	Bitrate     string `yaml:"bitrate"`
	PixelFormat string `yaml:"pixel_format"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Container: "mp4",

		InitialBox:          FormatBox(orchestrator.DefaultInitialBox),
		Origin:              pipeline.OriginTopLeft.String(),
		ConfidenceThreshold: orchestrator.DefaultConfidenceThreshold,
		Tracker: TrackerConfig{
			Level: processtracker.LevelFast,
		},

		Overlay: OverlayConfig{
			Color:       "#ff0000",
			StrokeWidth: 10,
		},

		Encoder: EncoderConfig{
			Codec:       "h264",
			Preset:      "1920x1080",
			PixelFormat: "yuv420p",
		},

		DebugDir:       "./debug",
		ThumbnailWidth: 480,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
// Unknown keys are rejected.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Input == "" {
		add("input is required")
	}
	if c.Output == "" {
		add("output is required")
	}
	if c.Input != "" && c.Input == c.Output {
		add("output must differ from input")
	}
	switch strings.ToLower(c.Container) {
	case "mp4", "mov":
	default:
		add("container %q must be mp4 or mov", c.Container)
	}

	if _, err := ParseBox(c.InitialBox); err != nil {
		add("initial_box: %v", err)
	}
	if _, err := pipeline.ParseOrigin(c.Origin); err != nil {
		add("origin: %v", err)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		add("confidence_threshold %v must be within [0,1]", c.ConfidenceThreshold)
	}
	if len(c.Tracker.Command) == 0 {
		add("tracker.command is required")
	}
	if _, err := processtracker.ValidateLevel(c.Tracker.Level); err != nil {
		add("tracker.level: %v", err)
	}

	if _, err := ParseColor(c.Overlay.Color); err != nil {
		add("overlay.color: %v", err)
	}
	if c.Overlay.StrokeWidth <= 0 {
		add("overlay.stroke_width %v must be positive", c.Overlay.StrokeWidth)
	}

	if _, _, err := ffmpegsink.ParsePreset(c.Encoder.Preset); err != nil {
		add("encoder.preset: %v", err)
	}
	if c.Encoder.Quality != "" {
		if _, ok := qualityCRF[QualityPreset(c.Encoder.Quality)]; !ok {
			add("encoder.quality %q must be low, medium or high", c.Encoder.Quality)
		}
	}
	if c.Encoder.CRF < 0 || c.Encoder.CRF > 51 {
		add("encoder.crf %d must be within 0-51", c.Encoder.CRF)
	}
	if c.DecoderThreads < 0 {
		add("decoder_threads %d must not be negative", c.DecoderThreads)
	}
	if c.ThumbnailWidth < 0 {
		add("thumbnail_width %d must not be negative", c.ThumbnailWidth)
	}
	switch c.LogFormat {
	case "console", "text", "json":
	default:
		add("log_format %q must be console, text or json", c.LogFormat)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n%w", ErrInvalidConfig, errors.Join(errs...))
}

// QualityPreset is a named CRF level.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

var qualityCRF = map[QualityPreset]int{
	QualityLow:    28,
	QualityMedium: 23,
	QualityHigh:   18,
}

// EncoderSettings returns the settings map handed to the frame sink. An
// explicit CRF wins over the quality preset.
func (c Config) EncoderSettings() map[string]string {
	e := c.Encoder
	settings := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			settings[key] = value
		}
	}
	set(ffmpegsink.SettingCodec, e.Codec)
	set(ffmpegsink.SettingPreset, e.Preset)
	set(ffmpegsink.SettingBitrate, e.Bitrate)
	set(ffmpegsink.SettingPixelFormat, e.PixelFormat)

	switch {
	case e.CRF > 0:
		settings[ffmpegsink.SettingCRF] = strconv.Itoa(e.CRF)
	case e.Quality != "":
		if crf, ok := qualityCRF[QualityPreset(e.Quality)]; ok {
			settings[ffmpegsink.SettingCRF] = strconv.Itoa(crf)
		}
	}
	return settings
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(hex string) (color.Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 && len(s) != 8 {
		return nil, fmt.Errorf("%w: color %q", ErrInvalidConfig, hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: color %q", ErrInvalidConfig, hex)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ParseBox parses "x,y,w,h" in normalized coordinates and validates it.
func ParseBox(s string) (pipeline.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pipeline.BoundingBox{}, fmt.Errorf("%w: box %q needs 4 values", ErrInvalidConfig, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return pipeline.BoundingBox{}, fmt.Errorf("%w: box %q: %v", ErrInvalidConfig, s, err)
		}
		v[i] = f
	}
	box := pipeline.BoundingBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if err := box.Validate(); err != nil {
		return pipeline.BoundingBox{}, err
	}
	return box, nil
}

// FormatBox formats a box the way ParseBox reads it.
func FormatBox(b pipeline.BoundingBox) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{f(b.X), f(b.Y), f(b.Width), f(b.Height)}, ",")
}

// ToOrchestratorConfig converts Config to orchestrator.Config. Call Validate
// first; parse errors are still returned.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	box, err := ParseBox(c.InitialBox)
	if err != nil {
		return orchestrator.Config{}, err
	}
	origin, err := pipeline.ParseOrigin(c.Origin)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	overlayColor, err := ParseColor(c.Overlay.Color)
	if err != nil {
		return orchestrator.Config{}, err
	}

	return orchestrator.Config{
		InitialBox:          box,
		Origin:              origin,
		ConfidenceThreshold: c.ConfidenceThreshold,
		Overlay: pipeline.Overlay{
			Color:       overlayColor,
			StrokeWidth: c.Overlay.StrokeWidth,
		},
		OutputFormat: pixbuf.FormatBGRA,
	}, nil
}
