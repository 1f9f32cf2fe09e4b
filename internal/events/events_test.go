package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/models"
)

type stubSink struct {
	err    error
	events []Event
}

func (s *stubSink) Notify(_ context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestFromOutcomeSuccess(t *testing.T) {
	req := models.GenerationRequest{SubjectDescription: "  Moses  "}
	result := models.GenerationResult{
		ProviderUsed: "gemini",
		Attempts:     []models.ProviderAttempt{{Provider: "gemini", Outcome: models.OutcomeSuccess, Tries: 1}},
		Cost:         decimal.RequireFromString("0.039"),
	}
	evt := FromOutcome("id-1", req, result, nil, time.Unix(0, 0))
	if evt.Type != TypeCompleted || evt.Outcome != models.OutcomeSuccess {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Subject != "Moses" || evt.ProviderUsed != "gemini" || evt.Cost.String() != "0.039" {
		t.Fatalf("unexpected event fields %+v", evt)
	}
}

func TestFromOutcomeFailure(t *testing.T) {
	attempts := []models.ProviderAttempt{{Provider: "a", Outcome: string(models.ErrorTransientTransport), Tries: 2}}
	err := models.NewGenerationError(models.ErrorAllProvidersExhausted, "all providers failed", attempts, nil)
	evt := FromOutcome("id-2", models.GenerationRequest{SubjectDescription: "Ruth"}, models.GenerationResult{}, err, time.Now())
	if evt.Type != TypeFailed || evt.Outcome != string(models.ErrorAllProvidersExhausted) {
		t.Fatalf("unexpected event %+v", evt)
	}
	if len(evt.Attempts) != 1 || evt.Message != "all providers failed" {
		t.Fatalf("expected attempt trail, got %+v", evt)
	}
}

func TestWebhookSinkNotify(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink([]string{srv.URL, " "}, config.WebhookConfig{Timeout: time.Second, MaxRetries: 1}, nil)
	evt := Event{ID: "evt-1", Type: TypeCompleted, Outcome: models.OutcomeSuccess, Cost: decimal.NewFromInt(1)}
	if err := sink.Notify(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.ID != "evt-1" || received.Type != TypeCompleted {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestWebhookSinkRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink([]string{srv.URL}, config.WebhookConfig{Timeout: time.Second, MaxRetries: 3}, nil)
	sink.backoff = time.Millisecond
	if err := sink.Notify(context.Background(), Event{ID: "evt-2"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestWebhookSinkNilWithoutTargets(t *testing.T) {
	if sink := NewWebhookSink(nil, config.WebhookConfig{}, nil); sink != nil {
		t.Fatalf("expected nil sink")
	}
}

func TestCompositeSinkNotify(t *testing.T) {
	okSink := &stubSink{}
	errSink := &stubSink{err: errors.New("boom")}
	var webhook *WebhookSink
	sink := NewCompositeSink(okSink, nil, webhook, errSink)
	if err := sink.Notify(context.Background(), Event{ID: "x"}); err == nil {
		t.Fatalf("expected error from composite sink")
	}
	if len(okSink.events) != 1 || len(errSink.events) != 1 {
		t.Fatalf("expected each sink to be invoked once")
	}
	if NewCompositeSink(nil, webhook) != nil {
		t.Fatalf("expected nil sink when no entries provided")
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	if err := NewLogSink(nil).Notify(context.Background(), Event{Type: TypeFailed}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestWebhookSinkDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	var eventHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		eventHeader = r.Header.Get("X-Composer-Event")
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	sink := NewWebhookSink([]string{srv.URL}, config.WebhookConfig{Timeout: time.Second, MaxRetries: 3}, nil)
	sink.backoff = time.Millisecond
	if err := sink.Notify(context.Background(), Event{ID: "evt-3", Type: TypeFailed}); err == nil {
		t.Fatalf("expected rejection error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
	if eventHeader != string(TypeFailed) {
		t.Fatalf("unexpected event header %q", eventHeader)
	}
}
