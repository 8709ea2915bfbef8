package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring sync cycles and the display API session
var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_cycles_total",
			Help: "Total number of polling cycles by outcome",
		},
		[]string{"outcome"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomsync_cycle_duration_seconds",
			Help:    "Duration of polling cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	FeedFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_feed_fetch_errors_total",
			Help: "Total number of calendar feed retrieval failures",
		},
		[]string{"calendar"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_uploads_total",
			Help: "Total number of schedule uploads by result",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomsync_logins_total",
			Help: "Total number of display API logins by result",
		},
		[]string{"result"},
	)

	PendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomsync_pending_requests",
			Help: "Requests waiting for a fresh session",
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(FeedFetchErrorsTotal)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(LoginsTotal)
	prometheus.MustRegister(PendingRequests)
}
