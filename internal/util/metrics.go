package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_remote_requests_total",
		Help: "Total number of requests sent to the order/payment backend",
	}, []string{"operation", "outcome"})

	RemoteRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_remote_request_latency_seconds",
		Help:    "Latency of requests sent to the order/payment backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OrderValidationFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_order_validation_failed_total",
		Help: "Total number of order requests rejected before reaching the backend",
	})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_orders_created_total",
		Help: "Total number of orders created through the portal",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_cache_lookups_total",
		Help: "Cache lookups by result (hit, miss, stale_served)",
	}, []string{"result"})

	CacheFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_cache_fetches_total",
		Help: "Fetches issued by the cache by outcome",
	}, []string{"outcome"})

	CacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_invalidations_total",
		Help: "Total number of cache invalidations",
	})

	PollTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_poll_ticks_total",
		Help: "Poll loop ticks by loop and result",
	}, []string{"loop", "result"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_status_transitions_total",
		Help: "Status transitions detected by polling",
	}, []string{"entity", "to"})

	CancelOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_cancel_outcomes_total",
		Help: "Cancellation submissions by outcome",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_active_order_sessions",
		Help: "Number of mounted order detail sessions",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
