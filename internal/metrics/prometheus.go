package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one analysis run. They live on a
// private registry because a run is a process, not a scrape target; Flush
// writes them in the node_exporter textfile format.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration         *prometheus.HistogramVec
	StageFailures         *prometheus.CounterVec
	AudioDuration         prometheus.Gauge
	AudioSampleRate       prometheus.Gauge
	ManipulationDetected  prometheus.Gauge
	SimulationApplied     prometheus.Gauge
	TranscriptionFailures prometheus.Counter
	LastRunTimestamp      prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forensic_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4 minutes
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_stage_failures_total",
			Help: "Pipeline stages that aborted the run",
		}, []string{"stage"}),
		AudioDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_audio_duration_seconds",
			Help: "Duration of the analyzed audio",
		}),
		AudioSampleRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_audio_sample_rate_hertz",
			Help: "Native sample rate of the analyzed audio",
		}),
		ManipulationDetected: f.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_manipulation_detected",
			Help: "1 when the anomaly check flagged the audio",
		}),
		SimulationApplied: f.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_simulation_applied",
			Help: "1 when adversarial noise was injected",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "forensic_transcription_failures_total",
			Help: "Transcriptions that ended in an error",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_last_run_timestamp_seconds",
			Help: "Unix time the run finished",
		}),
	}
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// Flush writes every collector to path atomically. An empty path is a no-op.
func (m *Metrics) Flush(path string) error {
	if path == "" {
		return nil
	}
	m.LastRunTimestamp.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
