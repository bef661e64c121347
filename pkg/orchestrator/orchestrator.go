// Package orchestrator runs the tracking loop: it pulls frames from a video
// source, asks the tracker for each new position, draws the overlay and
// writes annotated frames to a video sink.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// DefaultConfidenceThreshold is the confidence below which tracking stops.
const DefaultConfidenceThreshold = 0.5

// Config contains all configuration for the orchestrator.
type Config struct {
	// InitialBox is where the object is on the first frame.
	InitialBox pipeline.BoundingBox

	// Origin is the y-axis convention of every box in the run.
	Origin pipeline.Origin

	// ConfidenceThreshold ends the run when an observation falls below it.
	ConfidenceThreshold float64

	// Overlay is the marker drawn at each position.
	Overlay pipeline.Overlay

	// OutputFormat is the pixel format handed to the sink.
	OutputFormat pixbuf.Format
}

// DefaultInitialBox is used when no initial box is configured.
var DefaultInitialBox = pipeline.BoundingBox{X: 0.538, Y: 0.334, Width: 0.069, Height: 0.227}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		InitialBox:          DefaultInitialBox,
		Origin:              pipeline.OriginTopLeft,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Overlay:             pipeline.DefaultOverlay(),
		OutputFormat:        pixbuf.FormatBGRA,
	}
}

// Source is the frame supply of a run. *videosource.Source implements it.
type Source interface {
	NextFrame() (*pipeline.Frame, error)
	NativeSize() (width, height int)
	Orientation() pipeline.Orientation
	EstimatedFrameCount() int
}

// Sink receives annotated frames. *videosink.Sink implements it.
type Sink interface {
	WriteFrame(buf *pixbuf.Buffer) bool
	CloseSync(ctx context.Context) error
	FramesWritten() int
	FramesRejected() int
}

// Orchestrator coordinates the tracking loop.
type Orchestrator struct {
	tracker       ports.Tracker
	annotateStage pipeline.Stage[pipeline.AnnotateInput, pipeline.AnnotateResult]
	sink          ports.DebugSink
	logger        ports.Logger
	observers     []Observer
}

// New creates a new Orchestrator.
func New(
	tracker ports.Tracker,
	annotateStage pipeline.Stage[pipeline.AnnotateInput, pipeline.AnnotateResult],
	sink ports.DebugSink,
	logger ports.Logger,
	observers ...Observer,
) *Orchestrator {
	return &Orchestrator{
		tracker:       tracker,
		annotateStage: annotateStage,
		sink:          sink,
		logger:        logger,
		observers:     observers,
	}
}

// AddObserver registers an observer for subsequent runs.
func (o *Orchestrator) AddObserver(obs Observer) {
	o.observers = append(o.observers, obs)
}

// Run tracks the object through src and writes annotated frames to out.
// Whatever branch ends the loop, out is closed exactly once before Run
// returns.
//
// The returned error is non-nil when the run was aborted, when the initial
// box is invalid or when the sink could not be finalized. A tracker failure
// is reported in RunResult.TrackErr with a nil error, since the run still
// closes normally.
func (o *Orchestrator) Run(ctx context.Context, src Source, out Sink, config Config) (RunResult, error) {
	started := time.Now()
	result := RunResult{State: StateInit}

	closeCtx := context.WithoutCancel(ctx)
	closeSink := sync.OnceValue(func() error { return out.CloseSync(closeCtx) })
	defer closeSink()

	var runErr error
	if err := config.InitialBox.Validate(); err != nil {
		runErr = fmt.Errorf("initial box: %w", err)
		o.transition(&result, StateAborted)
	} else {
		o.transition(&result, StateRunning)
		o.logger.Info(l10n.T("Tracking started"))
		runErr = o.loop(ctx, src, out, config, &result)
	}

	if err := closeSink(); err != nil {
		o.logger.Error("Failed to finalize output: %v", err)
		runErr = errors.Join(runErr, fmt.Errorf("close sink: %w", err))
	}
	result.FramesWritten = out.FramesWritten()
	result.FramesRejected = out.FramesRejected()
	result.Terminal = result.State
	o.transition(&result, StateClosed)
	result.Duration = time.Since(started)

	o.saveRunJSON(result)
	return result, runErr
}

// loop runs frames until a terminal state is reached and leaves that state
// in result.
func (o *Orchestrator) loop(ctx context.Context, src Source, out Sink, config Config, result *RunResult) error {
	prior := config.InitialBox
	result.FinalBox = prior
	nativeW, nativeH := src.NativeSize()
	orientation := src.Orientation()
	estimated := src.EstimatedFrameCount()

	for {
		if err := ctx.Err(); err != nil {
			o.logger.Warn(l10n.T("Interrupted, shutting down..."))
			o.transition(result, StateAborted)
			return fmt.Errorf("interrupted: %w", err)
		}

		// 1. Next frame
		frame, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			o.logger.Info(l10n.T("End of video"))
			o.transition(result, StateEOF)
			return nil
		}
		if err != nil {
			o.logger.Warn("Decoding stopped early: %v", err)
			result.SourceErr = err
			o.logger.Info(l10n.T("End of video"))
			o.transition(result, StateEOF)
			return nil
		}
		result.FramesRead++

		// 2. Track
		trackStart := time.Now()
		obs, err := o.tracker.Track(ctx, ports.TrackRequest{Frame: frame, Prior: prior, Orientation: orientation})
		latency := time.Since(trackStart)
		if err != nil {
			o.logger.Error(l10n.T("Tracking failed"))
			o.logger.Debug("Tracker error on frame %d: %v", frame.Index, err)
			result.TrackErr = &TrackerInvocationError{Index: frame.Index, Err: err}
			o.transition(result, StateTrackFailed)
			return nil
		}
		obs = obs.Normalize()
		result.recordConfidence(obs.Confidence)
		o.logger.Info("Frame %d / %d: confidence %.3f", frame.Index+1, estimated, obs.Confidence)

		ev := FrameEvent{Index: frame.Index, Estimated: estimated, Observation: obs, TrackLatency: latency}

		// 3. Confidence gate
		if obs.Confidence < config.ConfidenceThreshold {
			o.saveObservation(ev)
			o.notifyFrame(ev)
			o.logger.Info(l10n.T("Tracking not confident enough"))
			o.transition(result, StateConfidenceLow)
			return nil
		}

		// 4. Annotate and write
		ev.Rect = obs.Box.ToPixelRect(nativeW, nativeH, orientation, config.Origin)
		ev.Accepted = true
		annotated, err := o.annotateStage.Execute(ctx, pipeline.AnnotateInput{
			Frame:        frame,
			Rect:         ev.Rect,
			Overlay:      config.Overlay,
			OutputFormat: config.OutputFormat,
		})
		if err != nil {
			o.logger.Error("Failed to annotate frame %d: %v", frame.Index, err)
			o.transition(result, StateAborted)
			if errors.Is(err, pixbuf.ErrAllocation) {
				return &BufferAllocationError{Index: frame.Index, Err: err}
			}
			return fmt.Errorf("annotate stage: %w", err)
		}

		ev.Written = out.WriteFrame(annotated.Buffer)
		prior = obs.Box
		result.FinalBox = prior

		o.saveObservation(ev)
		o.notifyFrame(ev)
	}
}

func (o *Orchestrator) transition(result *RunResult, to State) {
	from := result.State
	result.State = to
	o.logger.Debug("State %s -> %s", from, to)
	for _, obs := range o.observers {
		obs.StateChanged(from, to)
	}
}

func (o *Orchestrator) notifyFrame(ev FrameEvent) {
	for _, obs := range o.observers {
		obs.FrameProcessed(ev)
	}
}

// observationRecord is the debug JSON line for one frame.
type observationRecord struct {
	Index      int        `json:"index"`
	Box        [4]float64 `json:"box"`
	Confidence float64    `json:"confidence"`
	Rect       *[4]int    `json:"rect,omitempty"`
	Accepted   bool       `json:"accepted"`
	Written    bool       `json:"written"`
	LatencyMs  float64    `json:"latency_ms"`
}

func (o *Orchestrator) saveObservation(ev FrameEvent) {
	if !o.sink.Enabled() {
		return
	}
	b := ev.Observation.Box
	rec := observationRecord{
		Index:      ev.Index,
		Box:        [4]float64{b.X, b.Y, b.Width, b.Height},
		Confidence: ev.Observation.Confidence,
		Accepted:   ev.Accepted,
		Written:    ev.Written,
		LatencyMs:  float64(ev.TrackLatency.Microseconds()) / 1000,
	}
	if ev.Accepted {
		r := rectArray(ev.Rect)
		rec.Rect = &r
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := o.sink.SaveObservation(append(data, '\n')); err != nil {
		o.logger.Warn("Failed to save observation %d: %v", ev.Index, err)
	}
}

func (o *Orchestrator) saveRunJSON(result RunResult) {
	if !o.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(result.summary(), "", "  ")
	if err != nil {
		return
	}
	if err := o.sink.SaveRunJSON(data); err != nil {
		o.logger.Warn("Failed to save run metadata: %v", err)
	}
}

func rectArray(r image.Rectangle) [4]int {
	return [4]int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()}
}

// RunResult contains the results of a tracking run.
type RunResult struct {
	// State is StateClosed once Run returns.
	State State

	// Terminal is the branch that ended the loop.
	Terminal State

	FramesRead     int
	FramesWritten  int
	FramesRejected int

	// FinalBox is the last accepted box, or the initial box.
	FinalBox pipeline.BoundingBox

	LastConfidence float64
	MinConfidence  float64
	MeanConfidence float64
	Observations   int

	Duration time.Duration

	// SourceErr is set when decoding stopped on an error instead of the end
	// of the stream.
	SourceErr error

	// TrackErr is set when the run ended at StateTrackFailed.
	TrackErr error
}

func (r *RunResult) recordConfidence(c float64) {
	if r.Observations == 0 || c < r.MinConfidence {
		r.MinConfidence = c
	}
	r.MeanConfidence = (r.MeanConfidence*float64(r.Observations) + c) / float64(r.Observations+1)
	r.Observations++
	r.LastConfidence = c
}

type runSummary struct {
	Terminal       string     `json:"terminal"`
	FramesRead     int        `json:"frames_read"`
	FramesWritten  int        `json:"frames_written"`
	FramesRejected int        `json:"frames_rejected"`
	FinalBox       [4]float64 `json:"final_box"`
	LastConfidence float64    `json:"last_confidence"`
	MinConfidence  float64    `json:"min_confidence"`
	MeanConfidence float64    `json:"mean_confidence"`
	DurationMs     int64      `json:"duration_ms"`
	SourceError    string     `json:"source_error,omitempty"`
	TrackError     string     `json:"track_error,omitempty"`
}

func (r RunResult) summary() runSummary {
	s := runSummary{
		Terminal:       r.Terminal.String(),
		FramesRead:     r.FramesRead,
		FramesWritten:  r.FramesWritten,
		FramesRejected: r.FramesRejected,
		FinalBox:       [4]float64{r.FinalBox.X, r.FinalBox.Y, r.FinalBox.Width, r.FinalBox.Height},
		LastConfidence: r.LastConfidence,
		MinConfidence:  r.MinConfidence,
		MeanConfidence: r.MeanConfidence,
		DurationMs:     r.Duration.Milliseconds(),
	}
	if r.SourceErr != nil {
		s.SourceError = r.SourceErr.Error()
	}
	if r.TrackErr != nil {
		s.TrackError = r.TrackErr.Error()
	}
	return s
}
