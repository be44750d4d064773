// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pos"

// Registry owns the application collectors. Collectors are created once per
// registry so tests can build isolated registries.
type Registry struct {
	reg prometheus.Registerer

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	UseCaseRequests *prometheus.CounterVec
	UseCaseDuration *prometheus.HistogramVec
	BillingRetries  prometheus.Counter
	StockRejections prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Registry{
		reg: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UseCaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "usecase_requests_total",
			Help: "Use case executions by outcome.",
		}, []string{"use_case", "outcome"}),
		UseCaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "usecase_duration_seconds",
			Help: "Use case latency.", Buckets: prometheus.DefBuckets,
		}, []string{"use_case"}),
		BillingRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "billing", Name: "retries_total",
			Help: "Billing transactions retried after a unique-constraint conflict.",
		}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "billing", Name: "stock_rejections_total",
			Help: "Bills rejected for insufficient stock.",
		}),
	}
	reg.MustRegister(r.HTTPRequests, r.HTTPDuration, r.UseCaseRequests, r.UseCaseDuration, r.BillingRetries, r.StockRejections)
	return r
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New(prometheus.DefaultRegisterer)
	})
	return defaultReg
}

// ObserveUseCase records one use case execution
func (r *Registry) ObserveUseCase(useCase, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.UseCaseRequests.WithLabelValues(useCase, outcome).Inc()
	r.UseCaseDuration.WithLabelValues(useCase).Observe(seconds)
}
