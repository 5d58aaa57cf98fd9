package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics describes generation runs. The CLI is short-lived, so the
// registry is written to a node_exporter textfile instead of being served.
type runMetrics struct {
	registry *prometheus.Registry

	Runs         *prometheus.CounterVec
	FilesWritten prometheus.Counter
	BytesWritten prometheus.Counter
	TypesSkipped prometheus.Counter
	Duration     prometheus.Histogram
	LastSuccess  prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: appName,
				Subsystem: "generation",
				Name:      "runs_total",
				Help:      "Total number of generation runs",
			},
			[]string{"status"},
		),

		FilesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: appName,
			Subsystem: "generation",
			Name:      "files_written_total",
			Help:      "Total number of generated files written",
		}),

		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: appName,
			Subsystem: "generation",
			Name:      "bytes_written_total",
			Help:      "Total number of bytes of generated files written",
		}),

		TypesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: appName,
			Subsystem: "generation",
			Name:      "types_skipped_total",
			Help:      "Total number of referenced types that could not be fetched or classified",
		}),

		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: appName,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Generation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: appName,
			Subsystem: "generation",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful generation run",
		}),
	}
	m.registry.MustRegister(m.Runs, m.FilesWritten, m.BytesWritten, m.TypesSkipped, m.Duration, m.LastSuccess)
	return m
}

// observe records one run.
func (m *runMetrics) observe(start time.Time, files int, bytes int64, skipped int, err error) {
	m.Duration.Observe(time.Since(start).Seconds())
	m.FilesWritten.Add(float64(files))
	m.BytesWritten.Add(float64(bytes))
	m.TypesSkipped.Add(float64(skipped))
	if err != nil {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("success").Inc()
	m.LastSuccess.SetToCurrentTime()
}

// write stores the registry at path in the text exposition format.
func (m *runMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
