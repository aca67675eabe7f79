// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CachedDecisions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackgate_cached_decisions",
			Help: "Number of per-site disable decisions currently cached.",
		})

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgate_cache_hits_total",
			Help: "Disable-cache lookups answered from memory.",
		})

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgate_cache_misses_total",
			Help: "Disable-cache lookups that read through to the store.",
		})

	CacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgate_cache_invalidations_total",
			Help: "Cached decisions dropped after a store write.",
		})

	StoreMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgate_store_mutations_total",
			Help: "Store writes that changed a site's state, by kind.",
		}, []string{"kind"})

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgate_store_errors_total",
			Help: "Disable-store operations that failed, by operation.",
		}, []string{"op"})

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackgate_gate_decisions_total",
			Help: "Tracking-gate outcomes, by reason.",
		}, []string{"outcome"})

	EventsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackgate_events_recorded_total",
			Help: "Tracking events handed to the recorder after the gate.",
		})
)

func init() {
	prometheus.MustRegister(
		CachedDecisions,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheInvalidationsTotal,
		StoreMutationsTotal,
		StoreErrorsTotal,
		GateDecisionsTotal,
		EventsRecordedTotal,
	)
}
