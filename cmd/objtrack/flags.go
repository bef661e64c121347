package main

import (
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/objtrack/pkg/config"
)

// Flag names.
const (
	flagConfig       = "config"
	flagOutput       = "output"
	flagContainer    = "container"
	flagBox          = "box"
	flagOrigin       = "origin"
	flagThreshold    = "threshold"
	flagTracker      = "tracker"
	flagTrackerLevel = "tracker-level"
	flagTrackerEnv   = "tracker-env"
	flagOverlayColor = "overlay-color"
	flagStrokeWidth  = "stroke-width"
	flagCodec        = "codec"
	flagPreset       = "preset"
	flagQuality      = "quality"
	flagCRF          = "crf"
	flagBitrate      = "bitrate"
	flagPixelFormat  = "pixel-format"
	flagFFmpeg       = "ffmpeg"
	flagFFprobe      = "ffprobe"
	flagThreads      = "threads"
	flagDebug        = "debug"
	flagDebugDir     = "debug-dir"
	flagThumbWidth   = "thumbnail-width"
	flagSummary      = "summary"
	flagMetricsFile  = "metrics-file"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
	flagQuiet        = "quiet"
	flagProgress     = "progress"
)

// Flag categories, translated at startup.
const (
	categoryOutput    = "Output"
	categoryTracking  = "Tracking"
	categoryEncoding  = "Video and Quality"
	categoryTools     = "External Tools"
	categoryArtifacts = "Debug"
	categoryLogging   = "Logging"
)

func trackFlags() []cli.Flag {
	output, tracking, encoding := l10n.T(categoryOutput), l10n.T(categoryTracking), l10n.T(categoryEncoding)
	tools, artifacts, logging := l10n.T(categoryTools), l10n.T(categoryArtifacts), l10n.T(categoryLogging)

	return []cli.Flag{
		&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},

		&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Category: output, Usage: l10n.T("Output video file path (required)")},
		&cli.StringFlag{Name: flagContainer, Category: output, Usage: l10n.T("Output container (mp4 or mov)")},

		&cli.StringFlag{Name: flagBox, Aliases: []string{"b"}, Category: tracking, Usage: l10n.T("Initial box as x,y,w,h in normalized coordinates")},
		&cli.StringFlag{Name: flagOrigin, Category: tracking, Usage: l10n.T("Box y-axis origin (top-left or bottom-left)")},
		&cli.Float64Flag{Name: flagThreshold, Category: tracking, Usage: l10n.T("Confidence below which tracking stops")},
		&cli.StringFlag{Name: flagTracker, Aliases: []string{"t"}, Category: tracking, Usage: l10n.T("Tracker command line")},
		&cli.StringFlag{Name: flagTrackerLevel, Category: tracking, Usage: l10n.T("Tracking level (fast or accurate)")},
		&cli.StringSliceFlag{Name: flagTrackerEnv, Category: tracking, Usage: l10n.T("Extra KEY=VALUE environment for the tracker")},
		&cli.StringFlag{Name: flagOverlayColor, Category: tracking, Usage: l10n.T("Overlay color (hex, e.g., #ff0000)")},
		&cli.Float64Flag{Name: flagStrokeWidth, Category: tracking, Usage: l10n.T("Overlay stroke width in pixels")},

		&cli.StringFlag{Name: flagCodec, Category: encoding, Usage: l10n.T("Output codec (h264, hevc or prores)")},
		&cli.StringFlag{Name: flagPreset, Aliases: []string{"p"}, Category: encoding, Usage: l10n.T("Output size preset (e.g., 1920x1080, passthrough)")},
		&cli.StringFlag{Name: flagQuality, Aliases: []string{"q"}, Category: encoding, Usage: l10n.T("Quality preset (low, medium or high)")},
		&cli.IntFlag{Name: flagCRF, Category: encoding, Usage: l10n.T("Constant rate factor, overrides quality")},
		&cli.StringFlag{Name: flagBitrate, Category: encoding, Usage: l10n.T("Target bitrate (e.g., 8M)")},
		&cli.StringFlag{Name: flagPixelFormat, Category: encoding, Usage: l10n.T("Output pixel format")},

		&cli.StringFlag{Name: flagFFmpeg, Category: tools, Usage: l10n.T("Path to ffmpeg (falls back to FFMPEG_PATH env, then PATH)")},
		&cli.StringFlag{Name: flagFFprobe, Category: tools, Usage: l10n.T("Path to ffprobe (falls back to FFPROBE_PATH env, then PATH)")},
		&cli.IntFlag{Name: flagThreads, Category: tools, Usage: l10n.T("Decoder threads (0 = automatic)")},

		&cli.BoolFlag{Name: flagDebug, Aliases: []string{"d"}, Category: artifacts, Usage: l10n.T("Enable debug output")},
		&cli.StringFlag{Name: flagDebugDir, Category: artifacts, Usage: l10n.T("Directory for debug output")},
		&cli.IntFlag{Name: flagThumbWidth, Category: artifacts, Usage: l10n.T("Width of debug frame thumbnails")},
		&cli.StringFlag{Name: flagSummary, Category: artifacts, Usage: l10n.T("Write a Markdown run summary to this file")},
		&cli.StringFlag{Name: flagMetricsFile, Category: artifacts, Usage: l10n.T("Write run metrics in Prometheus text format to this file")},

		&cli.StringFlag{Name: flagLogLevel, Aliases: []string{"l"}, Category: logging, Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.StringFlag{Name: flagLogFormat, Category: logging, Usage: l10n.T("Log format (console, text or json)")},
		&cli.BoolFlag{Name: flagQuiet, Aliases: []string{"Q"}, Category: logging, Usage: l10n.T("Suppress all log output")},
		&cli.BoolFlag{Name: flagProgress, Category: logging, Usage: l10n.T("Show a progress bar")},
	}
}

// loadConfig reads the config file, if any, and applies the flags that were
// set on top of it. The positional argument is the input path.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.Args().Len() > 1 {
		return cfg, fmt.Errorf("%w: expected one input file, got %d arguments", config.ErrInvalidConfig, c.Args().Len())
	}
	if in := c.Args().First(); in != "" {
		cfg.Input = in
	}

	str := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	num := func(name string, dst *float64) {
		if c.IsSet(name) {
			*dst = c.Float64(name)
		}
	}
	integer := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	str(flagOutput, &cfg.Output)
	str(flagContainer, &cfg.Container)
	str(flagBox, &cfg.InitialBox)
	str(flagOrigin, &cfg.Origin)
	num(flagThreshold, &cfg.ConfidenceThreshold)
	if c.IsSet(flagTracker) {
		cfg.Tracker.Command = strings.Fields(c.String(flagTracker))
	}
	str(flagTrackerLevel, &cfg.Tracker.Level)
	if c.IsSet(flagTrackerEnv) {
		cfg.Tracker.Env = append(cfg.Tracker.Env, c.StringSlice(flagTrackerEnv)...)
	}
	str(flagOverlayColor, &cfg.Overlay.Color)
	num(flagStrokeWidth, &cfg.Overlay.StrokeWidth)

	str(flagCodec, &cfg.Encoder.Codec)
	str(flagPreset, &cfg.Encoder.Preset)
	str(flagQuality, &cfg.Encoder.Quality)
	integer(flagCRF, &cfg.Encoder.CRF)
	str(flagBitrate, &cfg.Encoder.Bitrate)
	str(flagPixelFormat, &cfg.Encoder.PixelFormat)

	str(flagFFmpeg, &cfg.FFmpegPath)
	str(flagFFprobe, &cfg.FFprobePath)
	integer(flagThreads, &cfg.DecoderThreads)

	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}
	str(flagDebugDir, &cfg.DebugDir)
	integer(flagThumbWidth, &cfg.ThumbnailWidth)
	str(flagSummary, &cfg.SummaryFile)
	str(flagMetricsFile, &cfg.MetricsFile)

	str(flagLogLevel, &cfg.LogLevel)
	str(flagLogFormat, &cfg.LogFormat)

	return cfg, nil
}
