package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePass(ResultWritten, 5*time.Millisecond)
	m.ObservePass(ResultUnchanged, time.Millisecond)
	m.ObservePass(ResultUnchanged, time.Millisecond)
	m.ObserveWrite("routes")
	m.ObserveConflicts(2)
	m.ObserveConflicts(0)
	m.SetRoutes(7)
	m.ObserveEvent(true)
	m.ObserveEvent(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues(ResultWritten)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues(ResultUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WritesTotal.WithLabelValues("routes")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Routes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchEvents.WithLabelValues("false")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePass(ResultError, time.Second)
		m.ObserveWrite("config")
		m.ObserveConflicts(1)
		m.SetRoutes(1)
		m.ObserveEvent(true)
	})
}
