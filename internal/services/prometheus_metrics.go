package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names accepted by PrometheusMetrics
const (
	MetricTransactionMutation    = "transaction.mutation"
	MetricTransactionDuration    = "transaction.mutation.duration"
	MetricChangePublishFailed    = "change_feed.publish.failed"
	MetricChangePublishSkipped   = "change_feed.publish.skipped"
	MetricCircuitBreakerState    = "circuit_breaker.state"
	MetricAggregationParseError  = "aggregation.parse_error"
	MetricAggregationComputed    = "aggregation.computed"
	MetricAggregationDuration    = "aggregation.duration"
	MetricAuthenticationEvent    = "authentication_event"
	MetricSubscriptionsActive    = "subscriptions.active"
	MetricSubscriptionRefreshErr = "subscriptions.refresh_failed"
)

type PrometheusMetrics struct {
	transactionMutations      *prometheus.CounterVec
	transactionDuration       prometheus.Histogram
	changePublishFailures     *prometheus.CounterVec
	circuitBreakerState       *prometheus.GaugeVec
	aggregationParseErrors    *prometheus.CounterVec
	aggregationsComputed      *prometheus.CounterVec
	aggregationDuration       prometheus.Histogram
	authenticationEventsTotal *prometheus.CounterVec
	activeSubscriptions       prometheus.Gauge
	subscriptionRefreshErrors prometheus.Counter
}

// NewPrometheusMetrics registers the service metrics with reg, or the default registry when reg is nil
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		transactionMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_mutations_total",
				Help: "Total number of transaction writes by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		transactionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transaction_mutation_duration_milliseconds",
				Help:    "Transaction write duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		changePublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "change_feed_publish_failures_total",
				Help: "Change notifications that were not published",
			},
			[]string{"reason"},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		aggregationParseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregation_parse_errors_total",
				Help: "Record fields the aggregator could not interpret",
			},
			[]string{"field"},
		),
		aggregationsComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregations_computed_total",
				Help: "Summaries computed by source",
			},
			[]string{"source", "mode"},
		),
		aggregationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aggregation_duration_milliseconds",
				Help:    "Summary computation duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		authenticationEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authentication_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event_type"},
		),
		activeSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_subscriptions",
				Help: "Current number of live transaction subscriptions",
			},
		),
		subscriptionRefreshErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subscription_refresh_failures_total",
				Help: "Snapshot reloads that failed",
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case MetricTransactionMutation:
		m.transactionMutations.WithLabelValues(tags["operation"], tags["status"]).Inc()
	case MetricChangePublishFailed:
		m.changePublishFailures.WithLabelValues("error").Inc()
	case MetricChangePublishSkipped:
		m.changePublishFailures.WithLabelValues("circuit_open").Inc()
	case MetricAggregationParseError:
		m.aggregationParseErrors.WithLabelValues(tags["field"]).Inc()
	case MetricAggregationComputed:
		m.aggregationsComputed.WithLabelValues(tags["source"], tags["mode"]).Inc()
	case MetricAuthenticationEvent:
		if eventType := tags["event_type"]; eventType != "" {
			m.authenticationEventsTotal.WithLabelValues(eventType).Inc()
		}
	case MetricSubscriptionRefreshErr:
		m.subscriptionRefreshErrors.Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricTransactionDuration:
		m.transactionDuration.Observe(float64(duration.Milliseconds()))
	case MetricAggregationDuration:
		m.aggregationDuration.Observe(float64(duration.Milliseconds()))
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case MetricCircuitBreakerState:
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(value)
	case MetricSubscriptionsActive:
		m.activeSubscriptions.Set(value)
	}
}

// SubscriptionOpened implements subscription.Observer
func (m *PrometheusMetrics) SubscriptionOpened() {
	m.activeSubscriptions.Inc()
}

// SubscriptionClosed implements subscription.Observer
func (m *PrometheusMetrics) SubscriptionClosed() {
	m.activeSubscriptions.Dec()
}

// SubscriptionRefreshFailed implements subscription.Observer
func (m *PrometheusMetrics) SubscriptionRefreshFailed() {
	m.subscriptionRefreshErrors.Inc()
}

// BreakerStateRecorder returns an OnStateChange hook that mirrors breaker state into a gauge
func (m *PrometheusMetrics) BreakerStateRecorder() func(name string, from, to BreakerState) {
	return func(name string, _, to BreakerState) {
		m.RecordGauge(MetricCircuitBreakerState, float64(to), map[string]string{"service": name})
	}
}
