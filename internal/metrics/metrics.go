// Package metrics exposes Trough's Prometheus metrics and an HTTP
// handler for METRICS_ADDR. See doc.go for complete package
// documentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HostsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trough_hosts_total",
			Help: "Total number of live hosts by role",
		},
		[]string{"role"},
	)

	SegmentsAssigned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trough_segments_assigned",
			Help: "Total number of committed segment assignments",
		},
	)

	HostLoadBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trough_host_load_bytes",
			Help: "Committed assignment bytes by host",
		},
		[]string{"host"},
	)

	ElectionWinsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trough_election_wins_total",
			Help: "Total number of times this process has won a sync-master election",
		},
	)

	CopyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trough_copy_failures_total",
			Help: "Total number of segment copies aborted by a bulk-store error",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trough_sync_duration_seconds",
			Help:    "Duration of one LocalSyncController reconciliation tick",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		HostsTotal,
		SegmentsAssigned,
		HostLoadBytes,
		ElectionWinsTotal,
		CopyFailuresTotal,
		SyncDuration,
	)
}

// Handler returns the Prometheus scrape handler to serve on METRICS_ADDR.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration for recording against a
// histogram once it completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time since NewTimer into
// histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
