// Package ffmpegpath locates the ffmpeg and ffprobe executables.
package ffmpegpath

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// ErrNotFound is returned when an executable cannot be located.
var ErrNotFound = errors.New("ffmpegpath: executable not found")

// Tool names an executable and the environment variable overriding it.
type Tool struct {
	Name   string
	EnvVar string
}

var (
	FFmpeg  = Tool{Name: "ffmpeg", EnvVar: "FFMPEG_PATH"}
	FFprobe = Tool{Name: "ffprobe", EnvVar: "FFPROBE_PATH"}
)

// Resolve finds the tool in the following order:
// 1. explicitPath, if non-empty
// 2. the tool's environment variable
// 3. PATH
// 4. common install locations
func (t Tool) Resolve(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("%w: %s %s", ErrNotFound, t.Name, explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(t.EnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s=%s", ErrNotFound, t.EnvVar, envPath)
		}
		return envPath, nil
	}

	name := t.Name
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	for _, p := range commonLocations(name) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, t.Name)
}

// Available reports whether the tool can be resolved without an explicit path.
func (t Tool) Available() bool {
	_, err := t.Resolve("")
	return err == nil
}

func commonLocations(name string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\ffmpeg\bin\` + name,
			`C:\Program Files\ffmpeg\bin\` + name,
			`C:\Program Files (x86)\ffmpeg\bin\` + name,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/" + name,
			"/usr/local/bin/" + name,
			"/usr/bin/" + name,
		}
	default:
		return []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
			"/opt/homebrew/bin/" + name,
			"/snap/bin/" + name,
		}
	}
}
