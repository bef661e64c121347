// Package metrics records tracking run metrics in a Prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/objtrack/pkg/orchestrator"
)

const namespace = "objtrack"

// Collector observes a run and keeps its metrics in a private registry.
type Collector struct {
	registry *prometheus.Registry

	framesTracked  prometheus.Counter
	framesAccepted prometheus.Counter
	framesWritten  prometheus.Counter
	framesDropped  prometheus.Counter
	confidence     prometheus.Histogram
	trackLatency   prometheus.Histogram
	state          *prometheus.GaugeVec
}

var _ orchestrator.Observer = (*Collector)(nil)

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		framesTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_tracked_total",
			Help:      "Frames handed to the tracker",
		}),
		framesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_accepted_total",
			Help:      "Frames whose observation passed the confidence threshold",
		}),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_written_total",
			Help:      "Annotated frames accepted by the encoder",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Annotated frames rejected by the encoder",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracker_confidence",
			Help:      "Confidence of each tracker observation",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		trackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracker_latency_seconds",
			Help:      "Time spent in one tracker call",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_state",
			Help:      "1 for the current pipeline state, 0 otherwise",
		}, []string{"state"}),
	}

	c.registry.MustRegister(
		c.framesTracked,
		c.framesAccepted,
		c.framesWritten,
		c.framesDropped,
		c.confidence,
		c.trackLatency,
		c.state,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StateChanged implements orchestrator.Observer.
func (c *Collector) StateChanged(from, to orchestrator.State) {
	c.state.WithLabelValues(from.String()).Set(0)
	c.state.WithLabelValues(to.String()).Set(1)
}

// FrameProcessed implements orchestrator.Observer.
func (c *Collector) FrameProcessed(ev orchestrator.FrameEvent) {
	c.framesTracked.Inc()
	c.confidence.Observe(ev.Observation.Confidence)
	c.trackLatency.Observe(ev.TrackLatency.Seconds())
	if !ev.Accepted {
		return
	}
	c.framesAccepted.Inc()
	if ev.Written {
		c.framesWritten.Inc()
	} else {
		c.framesDropped.Inc()
	}
}

// WriteFile writes the metrics in the Prometheus text format.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
