// Package metrics exposes Prometheus collectors for the advisory crawler.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal          *prometheus.CounterVec
	vulnerabilitiesStoredTotal prometheus.Counter
	cveLinksTotal              prometheus.Counter
	crawlDurationSeconds       prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisory_pages_fetched_total",
				Help: "Total number of advisory pages fetched, labeled by page kind and HTTP status.",
			},
			[]string{"kind", "status"},
		)

		vulnerabilitiesStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "advisory_vulnerabilities_stored_total",
				Help: "Total number of vulnerability rows persisted.",
			},
		)

		cveLinksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "advisory_cve_links_total",
				Help: "Total number of vulnerability-to-CVE junction rows written.",
			},
		)

		crawlDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "advisory_crawl_duration_seconds",
				Help:    "Histogram of end-to-end crawl durations.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)
	})
}

// ObservePage records one fetched page.
func ObservePage(kind string, statusCode int) {
	if pagesFetchedTotal == nil {
		return
	}
	pagesFetchedTotal.WithLabelValues(kind, strconv.Itoa(statusCode)).Inc()
}

// AddVulnerabilitiesStored records persisted vulnerability rows.
func AddVulnerabilitiesStored(n int) {
	if vulnerabilitiesStoredTotal == nil {
		return
	}
	vulnerabilitiesStoredTotal.Add(float64(n))
}

// AddCVELinks records written vulnerability_cve junction rows.
func AddCVELinks(n int) {
	if cveLinksTotal == nil {
		return
	}
	cveLinksTotal.Add(float64(n))
}

// ObserveCrawlDuration records one crawl's wall-clock duration.
func ObserveCrawlDuration(d time.Duration) {
	if crawlDurationSeconds == nil {
		return
	}
	crawlDurationSeconds.Observe(d.Seconds())
}
