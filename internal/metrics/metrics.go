// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_alerts_poll_cycles_total",
		Help: "Poll cycles that fetched upstream alerts",
	})
	PollSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_alerts_poll_skipped_total",
		Help: "Poll cycles skipped because no destination is configured",
	})
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_alerts_upstream_failures_total",
		Help: "Failed upstream API calls by endpoint",
	}, []string{"endpoint"})
	AlertsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_alerts_delivered_total",
		Help: "Alerts delivered to at least one destination, by severity",
	}, []string{"severity"})
	AlertsUndelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_alerts_undelivered_total",
		Help: "New alerts no destination accepted; retried next cycle",
	})
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_alerts_send_failures_total",
		Help: "Per-destination send failures",
	})
	SeenAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_alerts_seen_ids",
		Help: "Alert ids currently held in the dedup store",
	})
	Destinations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_alerts_destinations",
		Help: "Destinations with a usable channel",
	})
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_alerts_cycle_duration_seconds",
		Help:    "Wall time of one poll cycle",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
	})
)
