// Package metrics records run metrics in a private Prometheus registry and
// exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/entrhq/bddrun/pkg/lifecycle"
)

const (
	MetricsNamespace = "bddrun"
)

var _ lifecycle.Recorder = (*Recorder)(nil)

// Recorder implements lifecycle.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	retries         prometheus.Histogram
	duration        *prometheus.HistogramVec
	orphans         prometheus.Counter
	artifactErrors  prometheus.Counter
	buildSignals    prometheus.Counter
	lastRunFinished prometheus.Gauge
}

// New creates a recorder labelled with runID.
func New(runID string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg))

	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "attempts_total",
			Help:      "Count of scenario attempts by outcome state",
		}, []string{
			"state",
		}),
		retries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "attempt_retries",
			Help:      "Retries preceding each concluded attempt",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall-clock duration of scenario attempts",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{
			"state",
		}),
		orphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "orphan_recoveries_total",
			Help:      "Count of interrupted attempts repaired at startup",
		}),
		artifactErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "artifact_errors_total",
			Help:      "Count of artifact capture failures",
		}),
		buildSignals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "build_signals_total",
			Help:      "Count of build signal files written",
		}),
		lastRunFinished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the metrics were last written",
		}),
	}
}

// AttemptFinished records a concluded attempt.
func (r *Recorder) AttemptFinished(state string, retries int, d time.Duration) {
	r.attempts.WithLabelValues(state).Inc()
	r.retries.Observe(float64(retries))
	r.duration.WithLabelValues(state).Observe(d.Seconds())
}

// OrphanRecovered records a repaired crash.
func (r *Recorder) OrphanRecovered() {
	r.orphans.Inc()
}

// ArtifactErrors adds n capture failures.
func (r *Recorder) ArtifactErrors(n int) {
	r.artifactErrors.Add(float64(n))
}

// BuildSignalEmitted records the build signal.
func (r *Recorder) BuildSignalEmitted() {
	r.buildSignals.Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRunFinished.SetToCurrentTime()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
