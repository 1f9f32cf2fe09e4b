package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

func TestSetupDisabledReturnsNil(t *testing.T) {
	provider, err := Setup(context.Background(), config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, provider)

	// nil providers stay safe to call from handlers and the orchestrator
	provider.RecordAttempt(context.Background(), "gemini", "success", time.Second)
	provider.RecordGeneration(context.Background(), "success", "gemini", decimal.NewFromInt(1))
	require.Nil(t, provider.PrometheusHandler())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestMetricsExposedThroughPrometheusHandler(t *testing.T) {
	ctx := context.Background()
	provider, err := Setup(ctx, config.ObservabilityConfig{EnableMetrics: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	provider.RecordHTTPRequest(ctx, "POST", "/v1/compositions", 200, 120*time.Millisecond)
	provider.RecordAttempt(ctx, "gemini", "success", 3*time.Second)
	provider.RecordGeneration(ctx, "success", "gemini", decimal.RequireFromString("0.04"))
	provider.RecordGeneration(ctx, "ALL_PROVIDERS_EXHAUSTED", "", decimal.Zero)

	handler := provider.PrometheusHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	require.Contains(t, text, "composer_http_requests_total")
	require.Contains(t, text, `composer_provider_attempt_duration_seconds_count{outcome="success",provider="gemini"} 1`)
	require.Contains(t, text, `composer_generations_total{outcome="ALL_PROVIDERS_EXHAUSTED",provider=""} 1`)
	require.Contains(t, text, `composer_generation_spend_total{provider="gemini"} 0.04`)
}
