package guardrails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultModerationTimeout = 5 * time.Second

var allow = Result{Action: ActionAllow}

// moderationClient posts subject descriptions to an operator-run moderation
// endpoint. A nil client allows everything.
type moderationClient struct {
	endpoint string
	header   http.Header
	http     *http.Client
}

type moderationRequest struct {
	Field   string `json:"field"`
	Subject string `json:"subject"`
}

type moderationVerdict struct {
	Decision string   `json:"decision"`
	Category string   `json:"category"`
	Reasons  []string `json:"reasons"`
}

func newModerationClient(cfg ModerationConfig) *moderationClient {
	endpoint := strings.TrimSpace(cfg.WebhookURL)
	if endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultModerationTimeout
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	if name, value := strings.TrimSpace(cfg.WebhookAuthHeader), strings.TrimSpace(cfg.WebhookAuthValue); name != "" && value != "" {
		header.Set(name, value)
	}
	return &moderationClient{endpoint: endpoint, header: header, http: &http.Client{Timeout: timeout}}
}

// check returns the endpoint's verdict on the subject. Transport and decode
// errors come back with an allow decision.
func (m *moderationClient) check(ctx context.Context, subject string) (Result, error) {
	if m == nil || strings.TrimSpace(subject) == "" {
		return allow, nil
	}
	body, err := json.Marshal(moderationRequest{Field: "subject", Subject: subject})
	if err != nil {
		return allow, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return allow, err
	}
	req.Header = m.header.Clone()

	resp, err := m.http.Do(req)
	if err != nil {
		return allow, fmt.Errorf("moderation webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		return allow, fmt.Errorf("moderation webhook: status %d", resp.StatusCode)
	}
	var verdict moderationVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return allow, fmt.Errorf("moderation webhook: decode verdict: %w", err)
	}
	return Result{
		Action:     actionFor(verdict.Decision),
		Violations: verdict.Reasons,
		Category:   strings.TrimSpace(verdict.Category),
	}, nil
}

func actionFor(decision string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(decision))) {
	case ActionBlock:
		return ActionBlock
	case ActionWarn:
		return ActionWarn
	}
	return ActionAllow
}
