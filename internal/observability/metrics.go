// Package observability provides Prometheus metrics for the forecast and
// ingestion jobs. Both are short-lived, so metrics are pushed to a
// Pushgateway at the end of a run instead of being scraped.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics of one process.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	LastSuccess prometheus.Gauge

	// Forecast metrics
	ProbUp        *prometheus.GaugeVec
	CurrentSignal *prometheus.GaugeVec
	DataDate      prometheus.Gauge

	// Data metrics
	QuotesFetched  *prometheus.GaugeVec
	QuotesIngested *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "oil_forecast"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Runs by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of a run",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),

		ProbUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "prob_up",
			Help:      "Latest probability of an up move",
		}, []string{"policy"}),
		CurrentSignal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "signal",
			Help:      "1 for the current signal, 0 for the others",
		}, []string{"signal"}),
		DataDate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "data_date_timestamp_seconds",
			Help:      "Unix time of the data date used by the latest forecast",
		}),

		QuotesFetched: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "quotes_fetched",
			Help:      "Quotes returned by the last fetch",
		}, []string{"symbol"}),
		QuotesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "quotes_inserted_total",
			Help:      "Quotes written to the price history store",
		}, []string{"symbol"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of market data fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"symbol"}),
	}
}

// Registry returns the registry all metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(outcome string, d time.Duration, finishedAt time.Time) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		m.LastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// RecordFetch records one market data fetch.
func (m *Metrics) RecordFetch(symbol string, quotes int, d time.Duration) {
	m.QuotesFetched.WithLabelValues(symbol).Set(float64(quotes))
	m.FetchDuration.WithLabelValues(symbol).Observe(d.Seconds())
}

// RecordForecast records the latest forecast. signals lists every possible
// signal so the previous one is reset to 0.
func (m *Metrics) RecordForecast(policy string, probUp float64, signal string, signals []string, dataDate time.Time) {
	m.ProbUp.WithLabelValues(policy).Set(probUp)
	for _, s := range signals {
		v := 0.0
		if s == signal {
			v = 1
		}
		m.CurrentSignal.WithLabelValues(s).Set(v)
	}
	m.DataDate.Set(float64(dataDate.Unix()))
}

// RecordIngested records rows inserted by a backfill.
func (m *Metrics) RecordIngested(symbol string, n int) {
	m.QuotesIngested.WithLabelValues(symbol).Add(float64(n))
}

// Push sends all metrics to a Pushgateway, replacing the job's previous group.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
