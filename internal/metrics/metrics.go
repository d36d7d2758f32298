// Package metrics records stage outcomes as Prometheus metrics.
//
// The runner is a short-lived batch job, so instead of serving /metrics the
// registry is written once at the end of the run in the node_exporter
// textfile format.
package metrics

import (
	"context"
	"fmt"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a registry with the runner's metrics.
type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	exitCode prometheus.Gauge
	lastRun  prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clapper_stage_outcomes_total",
				Help: "Stage outcomes by status",
			},
			[]string{"stage", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clapper_stage_duration_seconds",
				Help:    "Duration of attempted stages",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
			},
			[]string{"stage"},
		),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clapper_run_exit_code",
			Help: "Exit code of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clapper_run_last_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	r.registry.MustRegister(r.outcomes, r.duration, r.exitCode, r.lastRun)
	return r
}

// Hooks returns lifecycle hooks feeding the recorder.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageOutcome: func(ctx context.Context, o *domain.StageOutcome) {
			r.outcomes.WithLabelValues(string(o.Stage), o.Status.String()).Inc()
			if o.Status.Attempted() {
				r.duration.WithLabelValues(string(o.Stage)).Observe(o.Duration.Seconds())
			}
		},
	}
}

// Finish records the end of the run.
func (r *Recorder) Finish(exitCode int, endUnix int64) {
	r.exitCode.Set(float64(exitCode))
	r.lastRun.Set(float64(endUnix))
}

// Registry exposes the registry, e.g. for a push gateway.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteFile writes the metrics in textfile format. The write is atomic.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
