package main

import (
	"fmt"
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/objtrack/pkg/adapters/ffmpegsource"
	"github.com/user/objtrack/pkg/adapters/logger"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show video track information without tracking"),
		ArgsUsage: l10n.T("INPUT"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagFFprobe, Usage: l10n.T("Path to ffprobe (falls back to FFPROBE_PATH env, then PATH)")},
		},
		Action: runProbe,
	}
}

func runProbe(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit(l10n.T("probe needs exactly one input file"), exitFailure)
	}
	path := c.Args().First()

	log := logger.NewConsoleWriter(ports.LevelWarn, c.App.Writer, c.App.ErrWriter)
	src := ffmpegsource.New(path, log, ffmpegsource.Options{FFprobePath: c.String(flagFFprobe)})
	info, err := src.Probe(c.Context)
	if err != nil {
		return cli.Exit(l10n.F("Cannot probe %s: %v", path, err), exitFailure)
	}

	writeProbe(c.App.Writer, path, info)
	return nil
}

// writeProbe prints the track the way the tracking run would see it.
func writeProbe(w io.Writer, path string, info ports.TrackInfo) {
	orientation, angle, ok := pipeline.OrientationOf(info.Transform)
	uw, uh := pipeline.UprightSize(info.Transform, info.NaturalWidth, info.NaturalHeight)

	fmt.Fprintf(w, "%-18s %s\n", l10n.T("File:"), path)
	fmt.Fprintf(w, "%-18s %s\n", l10n.T("Codec:"), info.Codec)
	fmt.Fprintf(w, "%-18s %dx%d\n", l10n.T("Encoded size:"), info.NaturalWidth, info.NaturalHeight)
	fmt.Fprintf(w, "%-18s %dx%d\n", l10n.T("Native size:"), uw, uh)
	fmt.Fprintf(w, "%-18s %s (%.3f fps)\n", l10n.T("Frame rate:"), info.FrameRate, info.FrameRate.Float64())
	fmt.Fprintf(w, "%-18s %.3fs\n", l10n.T("Duration:"), info.Duration.Float64())
	if ok {
		fmt.Fprintf(w, "%-18s %s (EXIF %d)\n", l10n.T("Orientation:"), orientation, orientation.EXIF())
	} else {
		fmt.Fprintf(w, "%-18s %s (%s)\n", l10n.T("Orientation:"), orientation, l10n.F("unsupported angle %.1f", angle))
	}
	fmt.Fprintf(w, "%-18s %d\n", l10n.T("Estimated frames:"), pipeline.EstimateFrameCount(info.Duration, info.FrameRate))
}
