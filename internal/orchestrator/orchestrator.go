package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/guardrails"
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxTimeout = 240 * time.Second
	defaultRetryDelay = 1500 * time.Millisecond
	maxAttempts       = 2
	textPreviewRunes  = 50
)

var tracer = otel.Tracer("github.com/ncecere/holy_coop/backend/internal/orchestrator")

// Orchestrator walks a provider lineup until one returns an image. It keeps no
// state between calls; concurrent Generate calls are independent.
type Orchestrator struct {
	cfg     config.OrchestratorConfig
	logger  *slog.Logger
	metrics Metrics
	guard   Guard
	sleep   SleepFunc
}

// New builds an orchestrator from an explicit configuration. Zero values fall
// back to the documented defaults.
func New(cfg config.OrchestratorConfig, opts ...Option) *Orchestrator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = defaultMaxTimeout
	}
	if cfg.DefaultTimeout > cfg.MaxTimeout {
		cfg.DefaultTimeout = cfg.MaxTimeout
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	} else if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > maxAttempts {
		cfg.MaxAttempts = maxAttempts
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = models.DefaultMaxImageBytes
	}
	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config exposes the effective configuration.
func (o *Orchestrator) Config() config.OrchestratorConfig {
	return o.cfg
}

// Generate runs one orchestration. On failure the error is always a
// *models.GenerationError carrying the attempt trail.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerationRequest, lineup []providers.Provider) (models.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.Generate")
	defer span.End()

	result, genErr := o.generate(ctx, req, lineup)
	if genErr != nil {
		span.SetStatus(codes.Error, genErr.Message)
		span.SetAttributes(attribute.String("composer.error_kind", string(genErr.Kind)))
		o.recordGeneration(ctx, string(genErr.Kind), "", result)
		o.logger.WarnContext(ctx, "composition failed",
			"kind", genErr.Kind,
			"message", genErr.Message,
			"attempts", len(genErr.Attempts),
		)
		return models.GenerationResult{}, genErr
	}
	span.SetAttributes(attribute.String("composer.provider", result.ProviderUsed))
	o.recordGeneration(ctx, models.OutcomeSuccess, result.ProviderUsed, result)
	o.logger.InfoContext(ctx, "composition succeeded",
		"provider", result.ProviderUsed,
		"attempts", len(result.Attempts),
		"bytes", len(result.Image),
	)
	return result, nil
}

func (o *Orchestrator) generate(ctx context.Context, req models.GenerationRequest, lineup []providers.Provider) (models.GenerationResult, *models.GenerationError) {
	if err := req.Validate(o.cfg.MaxImageBytes); err != nil {
		return models.GenerationResult{}, models.NewGenerationError(models.ErrorInvalidRequest, err.Error(), nil, err)
	}
	if o.guard != nil {
		verdict, err := o.guard.PreCheck(ctx, guardrails.PreCheckInput{Subject: req.Subject()})
		if err != nil {
			o.logger.WarnContext(ctx, "guardrail check failed", "error", err)
		}
		if verdict.Blocked() {
			msg := "subject description rejected by guardrails"
			if len(verdict.Violations) > 0 {
				msg += ": " + strings.Join(verdict.Violations, ", ")
			}
			return models.GenerationResult{}, models.NewGenerationError(models.ErrorInvalidRequest, msg, nil, nil)
		}
	}

	ordered := Sort(lineup)
	attempts := make([]models.ProviderAttempt, 0, len(ordered))
	var lastErr error
	for _, provider := range ordered {
		if err := ctx.Err(); err != nil {
			return models.GenerationResult{}, canceled(attempts, err)
		}
		cfg := provider.Config()
		attempt, outcome, err := o.attemptProvider(ctx, provider, cfg, req)
		attempts = append(attempts, attempt)
		if attempt.Succeeded() {
			return models.GenerationResult{
				Image:        outcome.Image,
				MIMEType:     outcome.MIMEType,
				ProviderUsed: cfg.ID,
				Attempts:     attempts,
				Cost:         cfg.CostPerImage,
			}, nil
		}
		if attempt.Outcome == string(models.ErrorCanceled) {
			return models.GenerationResult{}, canceled(attempts, err)
		}
		if err != nil {
			lastErr = err
		}
		o.logger.InfoContext(ctx, "provider attempt failed, falling back",
			"provider", cfg.ID,
			"outcome", attempt.Outcome,
			"reason", attempt.Reason,
			"tries", attempt.Tries,
		)
	}

	msg := "no providers configured"
	if len(attempts) > 0 {
		last := attempts[len(attempts)-1]
		msg = fmt.Sprintf("all %d providers failed; last: %s (%s)", len(attempts), last.Provider, last.Reason)
	}
	return models.GenerationResult{}, models.NewGenerationError(models.ErrorAllProvidersExhausted, msg, attempts, lastErr)
}

// attemptProvider calls one provider, retrying once after RetryDelay when the
// failure is transient. The returned attempt always names the final outcome.
func (o *Orchestrator) attemptProvider(ctx context.Context, provider providers.Provider, cfg models.ProviderConfig, req models.GenerationRequest) (models.ProviderAttempt, models.ImageOutcome, error) {
	attempt := models.ProviderAttempt{Provider: cfg.ID}
	payload := providers.BuildPayload(cfg, req)
	timeout := o.timeoutFor(cfg)
	started := time.Now()

	for {
		attempt.Tries++
		outcome, err := o.callWithTimeout(ctx, provider, payload, timeout)
		kind, reason := o.classify(ctx, outcome, err)
		if kind == "" {
			attempt.Outcome = models.OutcomeSuccess
			attempt.Latency = time.Since(started)
			o.recordAttempt(ctx, attempt)
			return attempt, outcome, nil
		}
		attempt.Outcome = string(kind)
		attempt.Reason = reason
		if !kind.Retryable() || attempt.Tries >= o.cfg.MaxAttempts {
			attempt.Latency = time.Since(started)
			o.recordAttempt(ctx, attempt)
			return attempt, models.ImageOutcome{}, err
		}
		o.logger.DebugContext(ctx, "retrying provider after transient failure",
			"provider", cfg.ID,
			"delay", o.cfg.RetryDelay,
			"reason", reason,
		)
		if err := o.sleep(ctx, o.cfg.RetryDelay); err != nil {
			attempt.Outcome = string(models.ErrorCanceled)
			attempt.Reason = "canceled while waiting to retry"
			attempt.Latency = time.Since(started)
			o.recordAttempt(ctx, attempt)
			return attempt, models.ImageOutcome{}, err
		}
	}
}

func (o *Orchestrator) callWithTimeout(ctx context.Context, provider providers.Provider, payload models.ImagePayload, timeout time.Duration) (outcome models.ImageOutcome, err error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			id := provider.Config().ID
			o.logger.ErrorContext(ctx, "provider panicked", "provider", id, "panic", r)
			err = models.NewProviderError(id, models.ErrorProviderRejected, 0, fmt.Sprintf("provider panicked: %v", r), nil)
		}
	}()
	return provider.Attempt(callCtx, payload)
}

// classify turns a provider call into an error kind and reason. An empty kind
// means the call produced an image.
func (o *Orchestrator) classify(ctx context.Context, outcome models.ImageOutcome, err error) (models.ErrorKind, string) {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ErrorCanceled, ctxErr.Error()
		}
		kind := providers.Classify(err)
		if kind == models.ErrorCanceled {
			// The caller's context is still live, so a canceled call came from the provider side.
			kind = models.ErrorTransientTransport
		}
		return kind, providers.Reason(err)
	}
	switch {
	case outcome.HasImage():
		return "", ""
	case outcome.Blocked:
		reason := "blocked by provider safety policy"
		if outcome.BlockReason != "" {
			reason += ": " + outcome.BlockReason
		}
		return models.ErrorContentPolicyBlocked, reason
	case strings.TrimSpace(outcome.Text) != "":
		return models.ErrorUnsupportedOutput, "provider returned text only: " + preview(outcome.Text)
	default:
		return models.ErrorUnsupportedOutput, "provider returned no image"
	}
}

func (o *Orchestrator) timeoutFor(cfg models.ProviderConfig) time.Duration {
	timeout := o.cfg.DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if timeout > o.cfg.MaxTimeout {
		timeout = o.cfg.MaxTimeout
	}
	return timeout
}

func (o *Orchestrator) recordAttempt(ctx context.Context, attempt models.ProviderAttempt) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordAttempt(ctx, attempt.Provider, attempt.Outcome, attempt.Latency)
}

func (o *Orchestrator) recordGeneration(ctx context.Context, outcome, provider string, result models.GenerationResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordGeneration(ctx, outcome, provider, result.Cost)
}

func canceled(attempts []models.ProviderAttempt, cause error) *models.GenerationError {
	if cause == nil {
		cause = context.Canceled
	}
	msg := "composition canceled"
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "composition deadline exceeded"
	}
	return models.NewGenerationError(models.ErrorCanceled, msg, attempts, cause)
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= textPreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:textPreviewRunes]) + "..."
}
