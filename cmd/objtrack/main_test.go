package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/user/objtrack/pkg/adapters/logger"
	"github.com/user/objtrack/pkg/config"
	"github.com/user/objtrack/pkg/mocks"
	"github.com/user/objtrack/pkg/orchestrator"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

// parseTrackArgs runs the track flags through a throwaway app and returns
// the resulting config.
func parseTrackArgs(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var cfg config.Config
	var loadErr error
	app := &cli.App{
		Name:           "objtrack",
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{{
			Name:  "track",
			Flags: trackFlags(),
			Action: func(c *cli.Context) error {
				cfg, loadErr = loadConfig(c)
				return nil
			},
		}},
	}
	if err := app.Run(append([]string{"objtrack", "track"}, args...)); err != nil {
		t.Fatalf("app.Run: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseTrackArgs(t, "in.mov")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := config.Defaults()
	want.Input = "in.mov"
	if cfg.Input != want.Input || cfg.Container != want.Container || cfg.InitialBox != want.InitialBox {
		t.Errorf("expected defaults with input, got %+v", cfg)
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	cfg, err := parseTrackArgs(t,
		"-o", "out.mov",
		"--container", "mov",
		"--box", "0.1,0.2,0.3,0.4",
		"--threshold", "0.7",
		"--tracker", "python3 tracker.py --model small",
		"--tracker-level", "accurate",
		"--tracker-env", "A=1",
		"--tracker-env", "B=2",
		"--crf", "20",
		"--debug",
		"--log-format", "json",
		"in.mov",
	)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Output != "out.mov" {
		t.Errorf("expected output out.mov, got %s", cfg.Output)
	}
	if cfg.Container != "mov" {
		t.Errorf("expected container mov, got %s", cfg.Container)
	}
	if cfg.InitialBox != "0.1,0.2,0.3,0.4" {
		t.Errorf("expected box override, got %s", cfg.InitialBox)
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.ConfidenceThreshold)
	}
	wantCmd := []string{"python3", "tracker.py", "--model", "small"}
	if strings.Join(cfg.Tracker.Command, "|") != strings.Join(wantCmd, "|") {
		t.Errorf("expected command %v, got %v", wantCmd, cfg.Tracker.Command)
	}
	if cfg.Tracker.Level != "accurate" {
		t.Errorf("expected level accurate, got %s", cfg.Tracker.Level)
	}
	if len(cfg.Tracker.Env) != 2 {
		t.Errorf("expected 2 env entries, got %v", cfg.Tracker.Env)
	}
	if cfg.Encoder.CRF != 20 {
		t.Errorf("expected crf 20, got %d", cfg.Encoder.CRF)
	}
	if !cfg.Debug {
		t.Error("expected debug enabled")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected log format json, got %s", cfg.LogFormat)
	}
	// Untouched values keep their defaults.
	if cfg.Encoder.Preset != config.Defaults().Encoder.Preset {
		t.Errorf("expected default preset, got %s", cfg.Encoder.Preset)
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objtrack.yaml")
	yaml := "input: file.mp4\noutput: file-out.mp4\nconfidence_threshold: 0.6\ntracker:\n  command: [tracker]\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseTrackArgs(t, "--config", path, "--threshold", "0.8")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Input != "file.mp4" {
		t.Errorf("expected input from file, got %s", cfg.Input)
	}
	if cfg.ConfidenceThreshold != 0.8 {
		t.Errorf("expected flag to win, got %v", cfg.ConfidenceThreshold)
	}
	if len(cfg.Tracker.Command) != 1 || cfg.Tracker.Command[0] != "tracker" {
		t.Errorf("expected tracker from file, got %v", cfg.Tracker.Command)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := parseTrackArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
	_, err := parseTrackArgs(t, "a.mov", "b.mov")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for two inputs, got %v", err)
	}
}

func TestRun_TrackInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"objtrack", "track"}, &stdout, &stderr)

	if code != exitFailure {
		t.Errorf("expected exit code %d, got %d", exitFailure, code)
	}
	if !strings.Contains(stderr.String(), "input is required") {
		t.Errorf("expected validation message, got %q", stderr.String())
	}
}

func TestRun_ProbeMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"objtrack", "probe", filepath.Join(t.TempDir(), "none.mp4")}, &stdout, &stderr)
	if code != exitFailure {
		t.Errorf("expected exit code %d, got %d", exitFailure, code)
	}
}

func TestRun_ProbeNeedsOneArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"objtrack", "probe"}, &stdout, &stderr); code != exitFailure {
		t.Errorf("expected exit code %d, got %d", exitFailure, code)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"objtrack", "--version"}, &stdout, &stderr); code != exitOK {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), version) {
		t.Errorf("expected version in output, got %q", stdout.String())
	}
}

func TestFinishTrack(t *testing.T) {
	tests := []struct {
		name     string
		result   orchestrator.RunResult
		runErr   error
		wantExit bool
		wantWarn int
	}{
		{"eof", orchestrator.RunResult{Terminal: orchestrator.StateEOF}, nil, false, 0},
		{"confidence low", orchestrator.RunResult{Terminal: orchestrator.StateConfidenceLow}, nil, false, 0},
		{"track failed", orchestrator.RunResult{Terminal: orchestrator.StateTrackFailed, TrackErr: errors.New("boom")}, nil, false, 1},
		{"aborted", orchestrator.RunResult{Terminal: orchestrator.StateAborted}, context.Canceled, true, 0},
		{"allocation", orchestrator.RunResult{Terminal: orchestrator.StateAborted}, &orchestrator.BufferAllocationError{Index: 3, Err: errors.New("oom")}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := mocks.NewLogger()
			err := finishTrack(log, "out.mp4", tt.result, tt.runErr)

			if tt.wantExit {
				var coder cli.ExitCoder
				if !errors.As(err, &coder) || coder.ExitCode() != exitFailure {
					t.Errorf("expected exit %d, got %v", exitFailure, err)
				}
			} else if err != nil {
				t.Errorf("expected nil, got %v", err)
			}
			if got := len(log.Messages(ports.LevelWarn)); got != tt.wantWarn {
				t.Errorf("expected %d warnings, got %d", tt.wantWarn, got)
			}
		})
	}
}

func TestWriteProbe(t *testing.T) {
	var buf bytes.Buffer
	writeProbe(&buf, "clip.mov", ports.TrackInfo{
		NaturalWidth:  1920,
		NaturalHeight: 1080,
		FrameRate:     pipeline.NewRational(30, 1),
		Duration:      pipeline.NewRational(2, 1),
		Transform:     pipeline.RotationTransform(90),
		Codec:         "hvc1",
	})
	out := buf.String()

	for _, want := range []string{"clip.mov", "hvc1", "1920x1080", "1080x1920", "30/1", "2.000s", "60"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in probe output:\n%s", want, out)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var stderr bytes.Buffer
	cfg := config.Defaults()

	l, err := newLogger(cfg, true, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(*logger.NoopLogger); !ok {
		t.Errorf("expected noop logger when quiet, got %T", l)
	}

	cfg.LogFormat = "json"
	l, err = newLogger(cfg, false, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(*logger.StructuredLogger); !ok {
		t.Errorf("expected structured logger, got %T", l)
	}

	cfg.LogLevel = "loud"
	if _, err := newLogger(cfg, false, &stderr); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
