package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for regeneration passes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PassesTotal  *prometheus.CounterVec
	PassDuration prometheus.Histogram
	WritesTotal  *prometheus.CounterVec
	Conflicts    prometheus.Counter
	Routes       prometheus.Gauge
	WatchEvents  *prometheus.CounterVec
}

// Pass results used as the "result" label.
const (
	ResultWritten   = "written"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// New registers the collectors on reg. Each caller passes its own registry,
// so independent instances (tests, multiple projects) never collide.
//
// Metrics:
//   - routegen_passes_total{result} - regeneration passes by outcome
//   - routegen_pass_duration_seconds - wall time of one pass
//   - routegen_artifact_writes_total{artifact} - artifacts replaced on disk
//   - routegen_route_conflicts_total - descriptors dropped for a taken path
//   - routegen_routes - routes in the last generated table
//   - routegen_watch_events_total{relevant} - file-system events seen by the loop
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PassesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegen_passes_total",
			Help: "Total number of regeneration passes by result",
		}, []string{"result"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "routegen_pass_duration_seconds",
			Help:    "Duration of a regeneration pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		WritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegen_artifact_writes_total",
			Help: "Total number of artifact files written",
		}, []string{"artifact"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "routegen_route_conflicts_total",
			Help: "Total number of route descriptors dropped because their path was taken",
		}),
		Routes: f.NewGauge(prometheus.GaugeOpts{
			Name: "routegen_routes",
			Help: "Number of routes in the last generated table",
		}),
		WatchEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "routegen_watch_events_total",
			Help: "Total number of file-system events received by the reconciliation loop",
		}, []string{"relevant"}),
	}
}

func (m *Metrics) ObservePass(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(result).Inc()
	m.PassDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveWrite(artifact string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(artifact).Inc()
}

func (m *Metrics) ObserveConflicts(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Conflicts.Add(float64(n))
}

func (m *Metrics) SetRoutes(n int) {
	if m == nil {
		return
	}
	m.Routes.Set(float64(n))
}

func (m *Metrics) ObserveEvent(relevant bool) {
	if m == nil {
		return
	}
	label := "false"
	if relevant {
		label = "true"
	}
	m.WatchEvents.WithLabelValues(label).Inc()
}
