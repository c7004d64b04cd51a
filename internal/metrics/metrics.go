package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchDuration tracks search latency by mode and outcome.
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_search_duration_seconds",
		Help:    "Search latency by mode",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"mode", "outcome"}) // outcome: ok, fallback

	// suggestionDuration tracks autocomplete latency.
	suggestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_suggestion_duration_seconds",
		Help:    "Suggestion latency",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5},
	})

	// syncsTotal counts finished merchant syncs by status.
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_syncs_total",
		Help: "Total number of merchant feed syncs by status",
	}, []string{"status"}) // status: ok, error, skipped

	// syncDuration tracks full sync runtime per merchant run.
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_sync_duration_seconds",
		Help:    "Time taken for one merchant feed sync",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// syncProducts tracks how many products each sync touched.
	syncProducts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_sync_products_count",
		Help:    "Products upserted per sync",
		Buckets: []float64{10, 100, 500, 1000, 5000, 10000, 50000},
	})

	// fetchTotal counts feed fetches by source.
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetch_total",
		Help: "Feed fetches by source (network or cache)",
	}, []string{"source"})
)

// ObserveSearch records one search invocation
func ObserveSearch(d time.Duration, mode string, fallback bool) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	searchDuration.WithLabelValues(mode, outcome).Observe(d.Seconds())
}

// ObserveSuggestion records one autocomplete invocation
func ObserveSuggestion(d time.Duration) {
	suggestionDuration.Observe(d.Seconds())
}

// ObserveSync records one finished merchant sync
func ObserveSync(d time.Duration, status string, products int) {
	syncsTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		syncDuration.Observe(d.Seconds())
		syncProducts.Observe(float64(products))
	}
}

// IncFetch counts one feed fetch by its source
func IncFetch(source string) {
	fetchTotal.WithLabelValues(source).Inc()
}
