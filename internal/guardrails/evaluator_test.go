package guardrails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPreCheckBlocksKeywordCaseInsensitive(t *testing.T) {
	e := NewEvaluator(Config{Enabled: true, BlockedKeywords: []string{"Forbidden"}})
	res, err := e.PreCheck(context.Background(), PreCheckInput{Subject: "a FORBIDDEN figure"})
	if err != nil {
		t.Fatalf("precheck: %v", err)
	}
	if !res.Blocked() || res.Violations[0] != "Forbidden" {
		t.Fatalf("expected block on keyword, got %+v", res)
	}
}

func TestPreCheckDisabledAllows(t *testing.T) {
	e := NewEvaluator(Config{BlockedKeywords: []string{"x"}})
	res, err := e.PreCheck(context.Background(), PreCheckInput{Subject: "x"})
	if err != nil || res.Blocked() {
		t.Fatalf("disabled evaluator must allow, got %+v (%v)", res, err)
	}
}

func TestPreCheckConsultsWebhook(t *testing.T) {
	var got moderationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Moderation-Key") != "secret" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(moderationVerdict{Decision: "block", Category: "violence", Reasons: []string{"weapon"}})
	}))
	defer srv.Close()

	e := NewEvaluator(Config{Enabled: true, Moderation: ModerationConfig{
		WebhookURL:        srv.URL,
		WebhookAuthHeader: "X-Moderation-Key",
		WebhookAuthValue:  "secret",
	}})
	res, err := e.PreCheck(context.Background(), PreCheckInput{Subject: "David with a sling"})
	if err != nil {
		t.Fatalf("precheck: %v", err)
	}
	if !res.Blocked() || res.Category != "violence" {
		t.Fatalf("expected webhook block, got %+v", res)
	}
	if got.Field != "subject" || got.Subject != "David with a sling" {
		t.Fatalf("unexpected webhook payload %+v", got)
	}
}

func TestPreCheckWebhookFailureAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewEvaluator(Config{Enabled: true, Moderation: ModerationConfig{WebhookURL: srv.URL}})
	res, err := e.PreCheck(context.Background(), PreCheckInput{Subject: "Ruth"})
	if err == nil {
		t.Fatalf("expected webhook error to surface")
	}
	if res.Blocked() {
		t.Fatalf("webhook failure must not block, got %+v", res)
	}
}
