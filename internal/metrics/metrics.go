// Package metrics exposes tick outcomes as prometheus collectors.
//
// A cron-driven tick exits right after its work, so Registry can also write
// the node_exporter textfile format; the built-in driver serves /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "bell_scheduler_"

// Tick results.
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
)

// Registry owns the scheduler collectors.
type Registry struct {
	registry *prometheus.Registry

	ticks          *prometheus.CounterVec
	fired          prometheus.Counter
	duplicates     prometheus.Counter
	failures       *prometheus.CounterVec
	degraded       *prometheus.CounterVec
	ledgerEntries  prometheus.Gauge
	lastTick       prometheus.Gauge
	tickDuration   prometheus.Histogram
	notifyFailures prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_total",
				Help: "Total ticks by result",
			},
			[]string{"result"},
		),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alarms_fired_total",
			Help: "Alarm occurrences handled for the first time",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alarms_suppressed_total",
			Help: "Due alarms skipped because the occurrence already fired",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "failures_total",
				Help: "Failures absorbed by the scheduler by stage",
			},
			[]string{"stage"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "playback_degraded_total",
				Help: "Alarms handled without audio by reason",
			},
			[]string{"reason"},
		),
		ledgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "ledger_entries",
			Help: "Occurrences recorded in the ledger after the last tick",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_tick_timestamp_seconds",
			Help: "Unix time of the last completed tick",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "tick_duration_seconds",
			Help:    "Tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "notify_failures_total",
			Help: "Announcements that could not be delivered",
		}),
	}

	r.registry.MustRegister(
		r.ticks,
		r.fired,
		r.duplicates,
		r.failures,
		r.degraded,
		r.ledgerEntries,
		r.lastTick,
		r.tickDuration,
		r.notifyFailures,
	)

	return r
}

// ObserveTick records one finished tick.
func (r *Registry) ObserveTick(result string, at time.Time, duration time.Duration, ledgerEntries int) {
	if r == nil {
		return
	}

	r.ticks.WithLabelValues(result).Inc()
	r.lastTick.Set(float64(at.Unix()))
	r.tickDuration.Observe(duration.Seconds())
	r.ledgerEntries.Set(float64(ledgerEntries))
}

// IncFired counts a newly handled occurrence.
func (r *Registry) IncFired() {
	if r != nil {
		r.fired.Inc()
	}
}

// IncSuppressed counts an occurrence skipped as already fired.
func (r *Registry) IncSuppressed() {
	if r != nil {
		r.duplicates.Inc()
	}
}

// IncFailure counts an absorbed failure at stage.
func (r *Registry) IncFailure(stage string) {
	if r != nil {
		r.failures.WithLabelValues(stage).Inc()
	}
}

// IncDegraded counts an alarm handled without audio.
func (r *Registry) IncDegraded(reason string) {
	if r != nil {
		r.degraded.WithLabelValues(reason).Inc()
	}
}

// IncNotifyFailure counts a failed announcement.
func (r *Registry) IncNotifyFailure() {
	if r != nil {
		r.notifyFailures.Inc()
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
