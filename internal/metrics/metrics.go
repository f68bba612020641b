// Package metrics exposes the Prometheus registry for hybridgate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the service's collectors with their own Prometheus
// registry so tests can instantiate it without global state.
type Registry struct {
	reg *prometheus.Registry

	// RequestsTotal counts routed generations by provider and outcome.
	// Provider is "fallback" when the non-selected provider served the
	// request; status is "success" or "error".
	RequestsTotal *prometheus.CounterVec

	// RequestLatency is the per-provider generation latency in milliseconds.
	RequestLatency *prometheus.HistogramVec

	// CostUSD accumulates estimated spend by provider and model.
	CostUSD *prometheus.CounterVec

	// TokensTotal accumulates token usage by provider, model, and direction
	// ("input" or "output").
	TokensTotal *prometheus.CounterVec

	// FallbackTotal counts requests served by the fallback provider, by the
	// reason the primary failed.
	FallbackTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridgate_requests_total",
			Help: "Total generation requests routed through hybridgate",
		}, []string{"provider", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridgate_request_latency_ms",
			Help:    "Generation latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}, []string{"provider"}),
		CostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridgate_cost_usd_total",
			Help: "Estimated USD cost of completed generations",
		}, []string{"provider", "model"}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridgate_tokens_total",
			Help: "Token usage of completed generations",
		}, []string{"provider", "model", "direction"}),
		FallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridgate_fallback_total",
			Help: "Requests served by the fallback provider",
		}, []string{"reason"}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hybridgate_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestLatency, m.CostUSD, m.TokensTotal, m.FallbackTotal, m.RateLimitedTotal)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
