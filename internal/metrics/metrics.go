// Package metrics holds the prometheus collectors of the hero search flow.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submit outcomes
const (
	OutcomeEmptyQuery    = "empty_query"
	OutcomeResults       = "results"
	OutcomeNoResults     = "no_results"
	OutcomeUpstreamError = "upstream_error"
)

// Metrics wraps the search flow Prometheus metrics.
type Metrics struct {
	submits          *prometheus.CounterVec
	normalizedItems  *prometheus.CounterVec
	fallbackImages   prometheus.Counter
	upstreamLatency  *prometheus.HistogramVec
	rechercheResults prometheus.Histogram
}

// Option allows customizing the metrics registry.
type Option func(*config)

type config struct {
	registerer prometheus.Registerer
	buckets    []float64
}

// WithRegisterer overrides the default Prometheus registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.registerer = r
	}
}

// WithLatencyBuckets overrides the default latency histogram buckets (in ms).
func WithLatencyBuckets(buckets []float64) Option {
	return func(cfg *config) {
		cfg.buckets = buckets
	}
}

// New constructs Metrics and registers its collectors.
func New(opts ...Option) *Metrics {
	cfg := config{
		registerer: prometheus.DefaultRegisterer,
		buckets:    []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hero_search_submits_total",
			Help: "Search submissions by outcome.",
		}, []string{"outcome"}),
		normalizedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hero_search_normalized_items_total",
			Help: "Normalized search items by source table.",
		}, []string{"source_table"}),
		fallbackImages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hero_search_fallback_images_total",
			Help: "Search items that received a fallback image.",
		}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hero_search_upstream_latency_ms",
			Help:    "Latency in milliseconds of POST /recherche calls.",
			Buckets: cfg.buckets,
		}, []string{"status"}),
		rechercheResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hero_search_recherche_results",
			Help:    "Number of records answered by the local /recherche endpoint.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}

	cfg.registerer.MustRegister(
		m.submits,
		m.normalizedItems,
		m.fallbackImages,
		m.upstreamLatency,
		m.rechercheResults,
	)
	return m
}

// ObserveSubmit counts one submit by outcome
func (m *Metrics) ObserveSubmit(outcome string) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(outcome).Inc()
}

// ObserveNormalized counts one normalized item. kind is a SourceTable name or "other".
func (m *Metrics) ObserveNormalized(kind string, fallbackImage bool) {
	if m == nil {
		return
	}
	m.normalizedItems.WithLabelValues(kind).Inc()
	if fallbackImage {
		m.fallbackImages.Inc()
	}
}

// ObserveUpstream records the latency of one /recherche call
func (m *Metrics) ObserveUpstream(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(status).Observe(float64(took.Milliseconds()))
}

// ObserveRecherche records the size of one local /recherche answer
func (m *Metrics) ObserveRecherche(count int) {
	if m == nil {
		return
	}
	m.rechercheResults.Observe(float64(count))
}
