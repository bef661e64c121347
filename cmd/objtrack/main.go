// Package main provides the CLI entry point for objtrack.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
)

var version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(stderr, msg)
			}
			return coder.ExitCode()
		}
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	return exitOK
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "objtrack",
		Usage:   l10n.T("Track an object through a video and draw its position"),
		Version: version,
		Description: l10n.T("objtrack follows one object from an initial bounding box through every frame " +
			"and writes a copy of the video with the tracked box drawn on it."),
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are handled by run.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			trackCommand(),
			probeCommand(),
		},
	}
}
