package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publicmap_snapshot_runs_total",
		Help: "Snapshot refresh runs by trigger and outcome",
	}, []string{"trigger", "outcome"})
	SnapshotDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "publicmap_snapshot_duration_ms",
		Help:    "Snapshot refresh duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000, 15000},
	})
	SnapshotRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publicmap_snapshot_rows",
		Help: "Rows written by the last successful refresh",
	})
	SnapshotLastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publicmap_snapshot_last_success_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publicmap_geocode_cache_hits_total",
		Help: "Geocode lookups answered from the cache",
	})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publicmap_geocode_cache_misses_total",
		Help: "Geocode lookups that went to the provider",
	})
	GeocodeUpstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publicmap_geocode_upstream_total",
		Help: "Provider calls by outcome",
	}, []string{"outcome"})
	GeocodeUpstreamDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "publicmap_geocode_upstream_duration_ms",
		Help:    "Provider call duration in milliseconds",
		Buckets: []float64{5, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(SnapshotRunsTotal)
	prometheus.MustRegister(SnapshotDurationMs)
	prometheus.MustRegister(SnapshotRows)
	prometheus.MustRegister(SnapshotLastSuccess)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeCacheMissesTotal)
	prometheus.MustRegister(GeocodeUpstreamTotal)
	prometheus.MustRegister(GeocodeUpstreamDurationMs)
}

// Handler serves the registered collectors for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
