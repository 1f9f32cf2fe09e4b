package observability

import (
	"context"
	"strconv"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "composer"

type metrics struct {
	httpRequests   *promreg.CounterVec
	httpLatency    *promreg.HistogramVec
	attemptLatency *promreg.HistogramVec
	generations    *promreg.CounterVec
	spend          *promreg.CounterVec
}

func newMetrics(reg promreg.Registerer) (*metrics, error) {
	httpLabels := []string{"method", "route", "status"}
	m := &metrics{
		httpRequests: promreg.NewCounterVec(promreg.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, httpLabels),
		httpLatency: promreg.NewHistogramVec(promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30, 60},
		}, httpLabels),
		attemptLatency: promreg.NewHistogramVec(promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_attempt_duration_seconds",
			Help:      "Provider attempt latency, by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 240},
		}, []string{"provider", "outcome"}),
		generations: promreg.NewCounterVec(promreg.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished orchestrations, by outcome and serving provider.",
		}, []string{"outcome", "provider"}),
		spend: promreg.NewCounterVec(promreg.CounterOpts{
			Namespace: namespace,
			Name:      "generation_spend_total",
			Help:      "Accumulated cost of successful generations.",
		}, []string{"provider"}),
	}
	for _, c := range []promreg.Collector{m.httpRequests, m.httpLatency, m.attemptLatency, m.generations, m.spend} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil || p.metrics == nil {
		return
	}
	code := strconv.Itoa(status)
	p.metrics.httpRequests.WithLabelValues(method, route, code).Inc()
	p.metrics.httpLatency.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// RecordAttempt observes one provider attempt, retries included.
func (p *Provider) RecordAttempt(_ context.Context, provider, outcome string, duration time.Duration) {
	if p == nil || p.metrics == nil {
		return
	}
	p.metrics.attemptLatency.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// RecordGeneration counts a finished orchestration and, on success, its cost.
func (p *Provider) RecordGeneration(_ context.Context, outcome, provider string, cost decimal.Decimal) {
	if p == nil || p.metrics == nil {
		return
	}
	p.metrics.generations.WithLabelValues(outcome, provider).Inc()
	if provider != "" && cost.IsPositive() {
		p.metrics.spend.WithLabelValues(provider).Add(cost.InexactFloat64())
	}
}
