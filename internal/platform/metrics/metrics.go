package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Webhooks and delivery
	WebhookInvocations  *prometheus.CounterVec
	PushDeliveries      *prometheus.CounterVec
	SubscriptionsPruned *prometheus.CounterVec
	DispatchDuration    prometheus.Histogram

	RateLimitHits *prometheus.CounterVec
}

// New registers every collector on reg. Passing a fresh registry per test avoids duplicate
// registration panics.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushhook_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pushhook_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		WebhookInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushhook_webhook_invocations_total",
				Help: "Webhook calls by endpoint type and result",
			},
			[]string{"endpoint_type", "result"},
		),
		PushDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushhook_push_deliveries_total",
				Help: "Push send attempts by classified outcome",
			},
			[]string{"outcome"},
		),
		SubscriptionsPruned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushhook_subscriptions_pruned_total",
				Help: "Subscriptions removed, by reason",
			},
			[]string{"reason"},
		),
		DispatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pushhook_dispatch_duration_seconds",
				Help:    "Time to fan a message out to all of a user's devices",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushhook_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
	}
}

// NewDefault also registers the Go runtime and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Webhook(endpointType, result string) {
	if m == nil {
		return
	}
	m.WebhookInvocations.WithLabelValues(endpointType, result).Inc()
}

func (m *Metrics) Delivery(outcome string) {
	if m == nil {
		return
	}
	m.PushDeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Pruned(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SubscriptionsPruned.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) Dispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
