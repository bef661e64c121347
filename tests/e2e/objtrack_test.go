// Package e2e contains end-to-end tests for the objtrack CLI.
// Set OBJTRACK_E2E=1 to run them; OBJTRACK_BINARY selects a pre-built binary.
package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/user/objtrack/pkg/adapters/ffmpegpath"
)

// getBinaryName returns the test binary name with platform-specific extension
func getBinaryName() string {
	if runtime.GOOS == "windows" {
		return "objtrack-test.exe"
	}
	return "objtrack-test"
}

// binary builds the CLI unless OBJTRACK_BINARY points at one, and returns
// its path.
func binary(t *testing.T) string {
	t.Helper()
	if os.Getenv("OBJTRACK_E2E") != "1" {
		t.Skip("Skipping E2E test (set OBJTRACK_E2E=1 to run)")
	}
	if path := os.Getenv("OBJTRACK_BINARY"); path != "" {
		return path
	}

	path := filepath.Join(t.TempDir(), getBinaryName())
	buildCmd := exec.Command("go", "build", "-o", path, "./cmd/objtrack")
	buildCmd.Dir = getProjectRoot(t)
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\n%s", err, out)
	}
	return path
}

// runCLI runs the binary and returns its output and exit code.
func runCLI(t *testing.T, bin string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "LANG=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return stdout.String(), stderr.String(), 0
	case errors.As(err, &exitErr):
		return stdout.String(), stderr.String(), exitErr.ExitCode()
	default:
		t.Fatalf("run %s: %v", bin, err)
		return "", "", -1
	}
}

func generateClip(t *testing.T) string {
	t.Helper()
	ffmpeg, err := ffmpegpath.FFmpeg.Resolve("")
	if err != nil || !ffmpegpath.FFprobe.Available() {
		t.Skip("Skipping: ffmpeg or ffprobe not found")
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	out, err := exec.Command(ffmpeg, "-hide_banner", "-v", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25",
		"-frames:v", "25", "-pix_fmt", "yuv420p", "-c:v", "libx264", path).CombinedOutput()
	if err != nil {
		t.Skipf("Skipping: cannot generate test clip: %v\n%s", err, out)
	}
	return path
}

// TestVersionCommand tests the version flag
func TestVersionCommand(t *testing.T) {
	bin := binary(t)

	stdout, _, code := runCLI(t, bin, "--version")
	if code != 0 {
		t.Fatalf("Version command failed with exit code %d", code)
	}
	if !strings.Contains(stdout, "objtrack version") {
		t.Errorf("Unexpected version output: %s", stdout)
	}
}

// TestProbeCommand probes a generated clip.
func TestProbeCommand(t *testing.T) {
	bin := binary(t)
	clip := generateClip(t)

	stdout, stderr, code := runCLI(t, bin, "probe", clip)
	if code != 0 {
		t.Fatalf("Probe failed with exit code %d\nstderr: %s", code, stderr)
	}
	for _, want := range []string{"320x240", "25/1", "identity", "avc1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in probe output:\n%s", want, stdout)
		}
	}
}

// TestTrackRequiresInput checks the exit code for a configuration error.
func TestTrackRequiresInput(t *testing.T) {
	bin := binary(t)

	_, stderr, code := runCLI(t, bin, "track", "-o", "out.mp4", "--tracker", "tracker")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "input is required") {
		t.Errorf("expected validation message, got: %s", stderr)
	}
}

// TestTrackMissingTracker fails before any frame is tracked.
func TestTrackMissingTracker(t *testing.T) {
	bin := binary(t)
	clip := generateClip(t)
	output := filepath.Join(t.TempDir(), "out.mp4")

	_, stderr, code := runCLI(t, bin, "track", "-o", output, "--tracker", "/nonexistent/tracker", clip)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d\nstderr: %s", code, stderr)
	}
	if _, err := os.Stat(output); err == nil {
		t.Error("expected no output file when the tracker cannot start")
	}
}

// TestTrackMissingInput fails at decode initialization.
func TestTrackMissingInput(t *testing.T) {
	bin := binary(t)
	dir := t.TempDir()

	_, _, code := runCLI(t, bin, "track",
		"-o", filepath.Join(dir, "out.mp4"),
		"--tracker", "tracker",
		filepath.Join(dir, "missing.mp4"))
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

// TestTrackHelp lists the main options.
func TestTrackHelp(t *testing.T) {
	bin := binary(t)

	stdout, _, code := runCLI(t, bin, "track", "--help")
	if code != 0 {
		t.Fatalf("help failed with exit code %d", code)
	}
	for _, flag := range []string{"--box", "--tracker", "--preset", "--container"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("Expected %s option in help", flag)
		}
	}
}

// getProjectRoot returns the project root directory
func getProjectRoot(t *testing.T) string {
	// Start from current working directory and find go.mod
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (go.mod)")
		}
		dir = parent
	}
}
