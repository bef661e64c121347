package summarizer

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator translates headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Tracking Summary"))

	row := func(label, value string) {
		fmt.Fprintf(&b, "| %s | %s |\n", t(label), value)
	}
	table := func(title string) {
		fmt.Fprintf(&b, "## %s\n\n| %s | %s |\n|---|---|\n", t(title), t("Item"), t("Value"))
	}

	table("Result")
	row("Run ID", s.RunID)
	row("Terminal State", s.Tracking.Terminal)
	row("Frames Read", fmt.Sprintf("%d", s.Tracking.FramesRead))
	row("Frames Written", fmt.Sprintf("%d", s.Tracking.FramesWritten))
	if s.Tracking.FramesRejected > 0 {
		row("Frames Rejected", fmt.Sprintf("%d", s.Tracking.FramesRejected))
	}
	row("Initial Box", s.Tracking.InitialBox.String())
	row("Final Box", s.Tracking.FinalBox.String())
	if s.Tracking.FramesRead > 0 {
		row("Confidence (last / min / mean)", fmt.Sprintf("%.3f / %.3f / %.3f",
			s.Tracking.LastConfidence, s.Tracking.MinConfidence, s.Tracking.MeanConfidence))
	}
	row("Elapsed", s.Tracking.Duration.Round(time.Millisecond).String())
	if s.Tracking.Error != "" {
		row("Error", strings.ReplaceAll(s.Tracking.Error, "\n", " "))
	}
	b.WriteString("\n")

	table("Input")
	row("Path", s.Input.Path)
	if s.Input.Codec != "" {
		row("Codec", s.Input.Codec)
	}
	row("Native Size", fmt.Sprintf("%dx%d", s.Input.Width, s.Input.Height))
	row("Frame Rate", fmt.Sprintf("%s (%.3f fps)", s.Input.FrameRate, s.Input.FrameRate.Float64()))
	row("Orientation", s.Input.Orientation.String())
	row("Estimated Frames", fmt.Sprintf("%d", s.Input.EstimatedFrames))
	b.WriteString("\n")

	table("Output")
	row("Path", s.Output.Path)
	row("Container", s.Output.Container)
	if s.Output.FileSize > 0 {
		row("File Size", formatBytes(s.Output.FileSize))
	}
	for _, key := range slices.Sorted(maps.Keys(s.Output.Settings)) {
		row(key, s.Output.Settings[key])
	}
	b.WriteString("\n")

	table("Settings")
	row("Tracking Level", s.Tracking.Level)
	row("Confidence Threshold", fmt.Sprintf("%.2f", s.Tracking.Threshold))
	b.WriteString("\n")

	fmt.Fprintf(&b, "---\n\n%s %s", t("Generated at"), s.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		fmt.Fprintf(&b, " (objtrack %s)", f.version)
	}
	b.WriteString("\n")

	return b.String()
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
