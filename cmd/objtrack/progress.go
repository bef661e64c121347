package main

import (
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/schollz/progressbar/v3"

	"github.com/user/objtrack/pkg/orchestrator"
)

// progressObserver advances a progress bar for each tracked frame.
type progressObserver struct {
	bar *progressbar.ProgressBar
}

// newProgressObserver sizes the bar by the estimated frame count. The
// estimate is an upper bound, so the bar is completed when the loop ends.
func newProgressObserver(w io.Writer, estimated int) *progressObserver {
	bar := progressbar.NewOptions(estimated,
		progressbar.OptionSetDescription(l10n.T("Tracking")),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { io.WriteString(w, "\n") }),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) StateChanged(_, to orchestrator.State) {
	if to.Terminal() {
		p.bar.Finish()
	}
}

func (p *progressObserver) FrameProcessed(orchestrator.FrameEvent) {
	p.bar.Add(1)
}
