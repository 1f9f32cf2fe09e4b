package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/providers/fixtures"
)

func TestConvertPredictResponseFixture(t *testing.T) {
	resp := fixtures.Decode[predictResponse](t, "vertex_predict_image.json")
	outcome, err := convertPredictResponse(resp)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(outcome.Image) != "PNGDATA" || outcome.MIMEType != "image/png" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestConvertPredictResponseFiltered(t *testing.T) {
	resp := fixtures.Decode[predictResponse](t, "vertex_predict_filtered.json")
	outcome, err := convertPredictResponse(resp)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !outcome.Blocked || !strings.Contains(outcome.BlockReason, "safety filter") {
		t.Fatalf("expected filtered outcome, got %+v", outcome)
	}
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	adapter, err := New(context.Background(), Options{
		Name:       "imagen",
		Model:      "imagen-3.0-capability-001",
		Endpoint:   srv.URL + "/v1/models/imagen-3.0-capability-001",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestAttemptSendsReferenceImage(t *testing.T) {
	body := fixtures.Bytes(t, "vertex_predict_image.json")
	var captured predictRequest
	var path string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	img := models.ImageInput{Data: []byte("photo")}
	outcome, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose", Image: &img, AspectRatio: "3:4"})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if string(outcome.Image) != "PNGDATA" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !strings.HasSuffix(path, ":predict") {
		t.Fatalf("unexpected path %q", path)
	}
	if len(captured.Instances) != 1 || len(captured.Instances[0].ReferenceImages) != 1 {
		t.Fatalf("expected one reference image, got %+v", captured.Instances)
	}
	if captured.Parameters.AspectRatio != "3:4" || captured.Parameters.SampleCount != 1 {
		t.Fatalf("unexpected parameters %+v", captured.Parameters)
	}
}

func TestAttemptTextOnlyOmitsReference(t *testing.T) {
	body := fixtures.Bytes(t, "vertex_predict_image.json")
	var captured predictRequest
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write(body)
	})
	if _, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "describe"}); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if len(captured.Instances) != 1 || len(captured.Instances[0].ReferenceImages) != 0 {
		t.Fatalf("expected prompt-only instance, got %+v", captured.Instances)
	}
}

func TestAttemptMapsQuotaError(t *testing.T) {
	body := fixtures.Bytes(t, "vertex_error_quota.json")
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write(body)
	})
	_, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
	var perr *models.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != models.ErrorAuthOrQuota || perr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected classification %+v", perr)
	}
	if !strings.HasPrefix(perr.Message, "Quota exceeded") {
		t.Fatalf("unexpected message %q", perr.Message)
	}
}

func TestAttemptFallsBackToStatusMessage(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
	var perr *models.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != models.ErrorTransientTransport || perr.Message != "HTTP Error 503" {
		t.Fatalf("unexpected error %+v", perr)
	}
}

type rejectedTokenSource struct{}

func (rejectedTokenSource) Token() (*oauth2.Token, error) {
	return nil, &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"},
		ErrorCode: "invalid_grant",
	}
}

func TestAttemptTokenExchangeFailureIsAuthOrQuota(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	t.Cleanup(srv.Close)
	adapter, err := New(context.Background(), Options{
		Name:       "imagen",
		Model:      "imagen-3.0-capability-001",
		Endpoint:   srv.URL + "/v1/models/imagen-3.0-capability-001",
		HTTPClient: oauth2.NewClient(context.Background(), rejectedTokenSource{}),
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	_, err = adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
	var perr *models.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != models.ErrorAuthOrQuota || perr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected classification %+v", perr)
	}
	if !strings.Contains(perr.Message, "invalid_grant") {
		t.Fatalf("unexpected message %q", perr.Message)
	}
	if hits != 0 {
		t.Fatalf("predict endpoint should not be called without a token, got %d hits", hits)
	}
}

func TestNewRejectsEndpointWithoutModelPath(t *testing.T) {
	for _, endpoint := range []string{
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8080/",
		"http://127.0.0.1:8080:predict",
		"localhost/v1/models/imagen",
	} {
		_, err := New(context.Background(), Options{
			Model:      "imagen-3.0-capability-001",
			Endpoint:   endpoint,
			HTTPClient: http.DefaultClient,
		})
		if err == nil {
			t.Fatalf("expected endpoint %q to be rejected", endpoint)
		}
	}
}
