// Package observability wires OpenTelemetry tracing and the Prometheus
// registry behind /metrics.
package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

const (
	serviceName         = "holy-coop-composer"
	defaultOTLPEndpoint = "localhost:4317"
)

// Provider owns the tracer and meter providers. A nil Provider is valid and
// records nothing.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error
	metrics        *metrics
}

// Setup returns nil when neither tracing nor metrics are enabled.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	p := &Provider{}
	if cfg.EnableOTLP {
		if err := p.setupTracing(ctx, cfg.OTLPEndpoint, res); err != nil {
			return nil, err
		}
	}
	if cfg.EnableMetrics {
		if err := p.setupMetrics(res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, rawEndpoint string, res *resource.Resource) error {
	endpoint := strings.TrimSpace(rawEndpoint)
	if endpoint == "" {
		endpoint = defaultOTLPEndpoint
	}
	var opts []otlptracegrpc.Option
	if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	} else {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	p.tracerProvider = tp
	p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)
	return nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promreg.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(mp)
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	m, err := newMetrics(registry)
	if err != nil {
		return err
	}
	p.metrics = m
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return nil
}

// PrometheusHandler is nil unless metrics are enabled.
func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

// Shutdown flushes every exporter, reporting all failures.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fn := range p.shutdownFuncs {
		errs = append(errs, fn(ctx))
	}
	p.shutdownFuncs = nil
	return errors.Join(errs...)
}
