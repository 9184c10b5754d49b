// Package metrics exposes prometheus metrics for the check cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the worker reports to
type Recorder interface {
	RecordCheck(variant, result string)
	RecordCheckLatency(variant string, duration time.Duration)
	RecordCycle(duration time.Duration, items int)
	RecordNotification()
	RecordAlert()
}

// Collector records metrics in prometheus
type Collector struct {
	checks        *prometheus.CounterVec
	checkLatency  *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	trackedItems  prometheus.Gauge
	notifications prometheus.Counter
	alerts        prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geizhals_checks_total",
			Help: "Item checks by variant and result",
		}, []string{"variant", "result"}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geizhals_check_latency_seconds",
			Help:    "Latency of a single item check",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geizhals_cycle_duration_seconds",
			Help:    "Duration of a full check cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		trackedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geizhals_tracked_items",
			Help: "Items checked in the last cycle",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geizhals_notifications_published_total",
			Help: "Notifications handed to the publisher",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geizhals_alerts_total",
			Help: "Operator alerts raised for repeated fetch failures",
		}),
	}

	reg.MustRegister(
		c.checks,
		c.checkLatency,
		c.cycleDuration,
		c.trackedItems,
		c.notifications,
		c.alerts,
	)

	return c
}

// RecordCheck counts one item check
func (c *Collector) RecordCheck(variant, result string) {
	c.checks.WithLabelValues(variant, result).Inc()
}

// RecordCheckLatency observes the latency of one item check
func (c *Collector) RecordCheckLatency(variant string, duration time.Duration) {
	c.checkLatency.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordCycle observes a finished check cycle
func (c *Collector) RecordCycle(duration time.Duration, items int) {
	c.cycleDuration.Observe(duration.Seconds())
	c.trackedItems.Set(float64(items))
}

// RecordNotification counts a published notification
func (c *Collector) RecordNotification() {
	c.notifications.Inc()
}

// RecordAlert counts an operator alert
func (c *Collector) RecordAlert() {
	c.alerts.Inc()
}

// Handler returns the /metrics handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Nop discards all metrics
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordCheck(string, string) {}
func (Nop) RecordCheckLatency(string, time.Duration) {}
func (Nop) RecordCycle(time.Duration, int) {}
func (Nop) RecordNotification() {}
func (Nop) RecordAlert() {}
