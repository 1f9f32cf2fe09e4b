package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

const (
	headerEventType  = "X-Composer-Event"
	headerDeliveryID = "X-Composer-Delivery"
)

// WebhookSink delivers each event as JSON to every configured endpoint in
// parallel. 5xx responses and transport errors are retried with a linear
// backoff; 4xx responses are final.
type WebhookSink struct {
	client   *http.Client
	targets  []string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// permanentError marks a delivery failure that retrying cannot fix.
type permanentError struct {
	status int
	cause  error
}

func (e permanentError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("rejected with status %d", e.status)
}

// NewWebhookSink returns nil when no endpoint is configured.
func NewWebhookSink(urls []string, cfg config.WebhookConfig, logger *slog.Logger) *WebhookSink {
	var targets []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			targets = append(targets, u)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		client:   &http.Client{Timeout: timeout},
		targets:  targets,
		attempts: max(cfg.MaxRetries, 1),
		backoff:  250 * time.Millisecond,
		logger:   logger,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, event Event) error {
	if s == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	errs := make([]error, len(s.targets))
	var wg sync.WaitGroup
	for i, target := range s.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.deliver(ctx, target, event, body); err != nil {
				s.logger.WarnContext(ctx, "event webhook failed", "url", target, "event_id", event.ID, "error", err)
				errs[i] = fmt.Errorf("%s: %w", target, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *WebhookSink) deliver(ctx context.Context, target string, event Event, body []byte) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.post(ctx, target, event, body); err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) || attempt == s.attempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (s *WebhookSink) post(ctx context.Context, target string, event Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return permanentError{cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEventType, string(event.Type))
	req.Header.Set(headerDeliveryID, event.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return permanentError{status: resp.StatusCode}
	}
	return nil
}
