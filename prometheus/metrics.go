// Package prometheus exports crawl progress as Prometheus metrics.
package prometheus

import (
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a crawl. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry      *prometheus.Registry
	PagesTotal    *prometheus.CounterVec
	ProductsTotal prometheus.Counter
	LoginFailures prometheus.Counter
	ActiveWorkers prometheus.Gauge
	ImagesTotal   *prometheus.CounterVec
	UpsertedTotal *prometheus.CounterVec
	CrawlDuration prometheus.Histogram
	StoppedEarly  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2bsync_pages_total",
			Help: "Catalog pages processed, by outcome.",
		},
		[]string{"outcome"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "b2bsync_products_scraped_total",
			Help: "Products extracted from catalog pages.",
		},
	)
	loginFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "b2bsync_login_failures_total",
			Help: "Workers that could not sign in.",
		},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "b2bsync_active_workers",
			Help: "Crawl workers currently running.",
		},
	)
	images := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2bsync_images_total",
			Help: "Product images handled, by outcome.",
		},
		[]string{"outcome"},
	)
	upserted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "b2bsync_products_upserted_total",
			Help: "Products written to the catalog database, by result.",
		},
		[]string{"result"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "b2bsync_crawl_duration_seconds",
			Help:    "Wall clock duration of complete crawls.",
			Buckets: prometheus.ExponentialBuckets(30, 2, 8),
		},
	)
	stopped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "b2bsync_workers_stopped_early_total",
			Help: "Workers that stopped after consecutive empty pages.",
		},
	)

	registry.MustRegister(pages, products, loginFailures, active, images, upserted, duration, stopped)

	return &Metrics{
		Registry:      registry,
		PagesTotal:    pages,
		ProductsTotal: products,
		LoginFailures: loginFailures,
		ActiveWorkers: active,
		ImagesTotal:   images,
		UpsertedTotal: upserted,
		CrawlDuration: duration,
		StoppedEarly:  stopped,
	}
}

// ObserveProgress records a crawl progress event.
func (m *Metrics) ObserveProgress(event crawl.ProgressEvent) {
	if m == nil {
		return
	}
	switch event.Type {
	case crawl.ProgressWorkerStarted:
		m.ActiveWorkers.Inc()
	case crawl.ProgressWorkerFinished:
		m.ActiveWorkers.Dec()
	case crawl.ProgressLoginFailed:
		m.LoginFailures.Inc()
	case crawl.ProgressPageCompleted:
		outcome := "products"
		if event.Products == 0 {
			outcome = "empty"
		}
		m.PagesTotal.WithLabelValues(outcome).Inc()
		m.ProductsTotal.Add(float64(event.Products))
	case crawl.ProgressPageSkipped:
		m.PagesTotal.WithLabelValues("skipped").Inc()
	case crawl.ProgressStoppedEarly:
		m.StoppedEarly.Inc()
	}
}

// ObserveImages records the image outcome of a crawl.
func (m *Metrics) ObserveImages(stats crawl.ImageStats) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues("existing").Add(float64(stats.Existing))
	m.ImagesTotal.WithLabelValues("fetched").Add(float64(stats.Fetched))
	m.ImagesTotal.WithLabelValues("failed").Add(float64(stats.Failed))
	m.ImagesTotal.WithLabelValues("skipped").Add(float64(stats.Skipped))
}

// ObserveUpsert records the result of storing crawled products.
func (m *Metrics) ObserveUpsert(res *b2bsync.UpsertResult) {
	if m == nil || res == nil {
		return
	}
	m.UpsertedTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	m.UpsertedTotal.WithLabelValues("updated").Add(float64(res.Updated))
	m.UpsertedTotal.WithLabelValues("unchanged").Add(float64(res.Unchanged))
}

// ObserveDuration records the duration of a complete crawl.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.CrawlDuration.Observe(d.Seconds())
}
