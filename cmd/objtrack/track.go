package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/objtrack/pkg/adapters/ffmpegsink"
	"github.com/user/objtrack/pkg/adapters/ffmpegsource"
	"github.com/user/objtrack/pkg/adapters/filesink"
	"github.com/user/objtrack/pkg/adapters/ggrenderer"
	"github.com/user/objtrack/pkg/adapters/nullsink"
	"github.com/user/objtrack/pkg/adapters/osfilesystem"
	"github.com/user/objtrack/pkg/adapters/processtracker"
	"github.com/user/objtrack/pkg/config"
	"github.com/user/objtrack/pkg/metrics"
	"github.com/user/objtrack/pkg/orchestrator"
	"github.com/user/objtrack/pkg/ports"
	"github.com/user/objtrack/pkg/stages/annotate"
	"github.com/user/objtrack/pkg/summarizer"
	"github.com/user/objtrack/pkg/videosink"
	"github.com/user/objtrack/pkg/videosource"
)

func trackCommand() *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     l10n.T("Track an object and write an annotated video"),
		ArgsUsage: l10n.T("INPUT"),
		Description: l10n.T("Decode INPUT, follow the object from the initial box with the tracker process, " +
			"and write every confidently tracked frame with the box drawn on it."),
		Flags:  trackFlags(),
		Action: runTrack,
	}
}

func runTrack(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	orchConfig, err := cfg.ToOrchestratorConfig()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	log, err := newLogger(cfg, c.Bool(flagQuiet), c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	// Child processes end through Close, after the loop has stopped
	// between frames.
	procCtx := context.WithoutCancel(ctx)

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return cli.Exit(fmt.Sprintf("create debug directory: %v", err), exitFailure)
		}
		sink = filesink.New(cfg.DebugDir, cfg.ThumbnailWidth, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	decoder := ffmpegsource.New(cfg.Input, log, ffmpegsource.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Threads:     cfg.DecoderThreads,
	})
	src, err := videosource.Open(procCtx, decoder, log, videosource.Options{})
	if err != nil {
		log.Error(l10n.F("Cannot open %s: %v", cfg.Input, err))
		return cli.Exit("", exitFailure)
	}
	defer src.Close()

	tracker, err := processtracker.Start(procCtx, log, processtracker.Options{
		Command: cfg.Tracker.Command,
		Level:   cfg.Tracker.Level,
		Env:     cfg.Tracker.Env,
	})
	if err != nil {
		log.Error(l10n.F("Cannot start tracker: %v", err))
		return cli.Exit("", exitFailure)
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			log.Debug("Tracker close: %v", err)
		}
	}()

	encoder := ffmpegsink.New(log, ffmpegsink.Options{FFmpegPath: cfg.FFmpegPath})
	settings := cfg.EncoderSettings()
	out, err := videosink.New(procCtx, encoder, log, videosink.Options{
		Path:      cfg.Output,
		Container: cfg.Container,
		FrameRate: src.FrameRate(),
		Settings:  settings,
	})
	if err != nil {
		log.Error(l10n.F("Cannot open output %s: %v", cfg.Output, err))
		return cli.Exit("", exitFailure)
	}

	collector := metrics.NewCollector()
	observers := []orchestrator.Observer{collector}
	if c.Bool(flagProgress) && !c.Bool(flagQuiet) {
		observers = append(observers, newProgressObserver(c.App.ErrWriter, src.EstimatedFrameCount()))
	}

	annotateStage := annotate.NewStage(renderer, nil, sink, log)
	orch := orchestrator.New(tracker, annotateStage, sink, log, observers...)

	log.Info(l10n.F("Tracking %s (%s)...", cfg.Input, orchConfig.InitialBox))
	result, runErr := orch.Run(ctx, src, out, orchConfig)

	if cfg.SummaryFile != "" {
		summary := buildSummary(cfg, orchConfig, src, settings, result)
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		), fs)
		if err := w.Write(cfg.SummaryFile, summary); err != nil {
			log.Warn(l10n.F("Failed to write summary: %v", err))
		}
	}
	if cfg.MetricsFile != "" {
		if err := collector.WriteFile(cfg.MetricsFile); err != nil {
			log.Warn(l10n.F("Failed to write metrics: %v", err))
		}
	}

	return finishTrack(log, cfg.Output, result, runErr)
}

// finishTrack maps the run outcome to the command result. A tracker failure
// still closed the output normally, so it only warns.
func finishTrack(log ports.Logger, output string, result orchestrator.RunResult, runErr error) error {
	if runErr != nil {
		var allocErr *orchestrator.BufferAllocationError
		if errors.As(runErr, &allocErr) {
			log.Error(l10n.F("Out of memory at frame %d", allocErr.Index))
		}
		log.Error(l10n.F("Tracking aborted: %v", runErr))
		return cli.Exit("", exitFailure)
	}

	if result.Terminal == orchestrator.StateTrackFailed {
		log.Warn(l10n.F("Tracker failed: %v", result.TrackErr))
	}
	log.Info(l10n.F("Tracking ended at %s after %d frames, %d written", result.Terminal, result.FramesRead, result.FramesWritten))
	log.Info(l10n.F("Output saved to %s", output))
	return nil
}

func buildSummary(cfg config.Config, orchConfig orchestrator.Config, src *videosource.Source, settings map[string]string, result orchestrator.RunResult) *summarizer.Summary {
	info := src.TrackInfo()
	w, h := src.NativeSize()

	var size int64
	if st, err := os.Stat(cfg.Output); err == nil {
		size = st.Size()
	}

	return summarizer.NewBuilder().
		WithInput(summarizer.InputInfo{
			Path:            cfg.Input,
			Codec:           info.Codec,
			Width:           w,
			Height:          h,
			FrameRate:       info.FrameRate,
			Orientation:     src.Orientation(),
			EstimatedFrames: src.EstimatedFrameCount(),
		}).
		WithOutput(summarizer.OutputInfo{
			Path:      cfg.Output,
			Container: cfg.Container,
			FileSize:  size,
			Settings:  settings,
		}).
		WithTracking(orchConfig, cfg.Tracker.Level, result).
		Build()
}
