package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mChecks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_checks_total", Help: "Health checks executed",
	})
	mHealthy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_healthy_total", Help: "Checks classified healthy",
	})
	mUnhealthy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_unhealthy_total", Help: "Checks classified unhealthy",
	})
	mStoreErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_store_errors_total", Help: "Persistence failures during checks",
	})
	mPublishErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_publish_errors_total", Help: "Health transition publish failures",
	})
	mLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "monitor_probe_latency_seconds",
		Help:    "Probe latency",
		Buckets: prometheus.DefBuckets,
	})
)
