package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

// Options configures the Gemini generateContent adapter.
type Options struct {
	Name            string
	APIKey          string
	BaseURL         string
	Model           string
	ImageOnly       bool
	SafetyThreshold string
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Adapter composes images through the Gemini API.
type Adapter struct {
	client *genai.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Gemini adapter backed by the genai SDK.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("gemini model required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "gemini"
	}
	return &Adapter{client: client, opts: opts, logger: logger}, nil
}

// Attempt sends the prompt (and photo when present) to generateContent.
func (a *Adapter) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	parts := []*genai.Part{genai.NewPartFromText(payload.Prompt)}
	if payload.Image != nil && len(payload.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(payload.Image.Data, payload.Image.MIMEType()))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := a.client.Models.GenerateContent(ctx, a.opts.Model, contents, a.generateConfig(payload))
	if err != nil {
		return models.ImageOutcome{}, a.convertError(err)
	}
	outcome := parseResponse(resp)
	if outcome.Blocked {
		a.logger.WarnContext(ctx, "gemini blocked composition", "provider", a.opts.Name, "reason", outcome.BlockReason)
	}
	return outcome, nil
}

// HealthCheck fetches the model description as a readiness probe.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.Get(ctx, a.opts.Model, nil)
	if err != nil {
		return a.convertError(err)
	}
	return nil
}

func (a *Adapter) generateConfig(payload models.ImagePayload) *genai.GenerateContentConfig {
	modalities := []string{"IMAGE", "TEXT"}
	if a.opts.ImageOnly {
		modalities = []string{"IMAGE"}
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: modalities,
		SafetySettings:     safetySettings(a.opts.SafetyThreshold),
	}
	if ratio := strings.TrimSpace(payload.AspectRatio); ratio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: ratio}
	}
	return cfg
}

func safetySettings(threshold string) []*genai.SafetySetting {
	level := genai.HarmBlockThresholdBlockMediumAndAbove
	switch strings.ToLower(strings.TrimSpace(threshold)) {
	case "":
	case "none":
		level = genai.HarmBlockThresholdBlockNone
	case "high", "only_high":
		level = genai.HarmBlockThresholdBlockOnlyHigh
	case "low", "low_and_above":
		level = genai.HarmBlockThresholdBlockLowAndAbove
	}
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{Category: category, Threshold: level})
	}
	return settings
}

var blockingFinishReasons = map[genai.FinishReason]struct{}{
	genai.FinishReasonSafety:                       {},
	genai.FinishReasonProhibitedContent:            {},
	genai.FinishReasonBlocklist:                    {},
	genai.FinishReasonSPII:                         {},
	genai.FinishReason("IMAGE_SAFETY"):             {},
	genai.FinishReason("IMAGE_PROHIBITED_CONTENT"): {},
}

// parseResponse inspects the first candidate: an inline image wins, then block
// signals, then any text the model produced instead.
func parseResponse(resp *genai.GenerateContentResponse) models.ImageOutcome {
	if resp == nil {
		return models.ImageOutcome{}
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			reason += ": " + fb.BlockReasonMessage
		}
		return models.ImageOutcome{Blocked: true, BlockReason: reason}
	}
	if len(resp.Candidates) == 0 {
		return models.ImageOutcome{}
	}
	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = models.DetectImageType(part.InlineData.Data)
				}
				return models.ImageOutcome{Image: part.InlineData.Data, MIMEType: mimeType}
			}
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if _, blocked := blockingFinishReasons[candidate.FinishReason]; blocked {
		reason := string(candidate.FinishReason)
		if candidate.FinishMessage != "" {
			reason += ": " + candidate.FinishMessage
		}
		return models.ImageOutcome{Blocked: true, BlockReason: reason}
	}
	return models.ImageOutcome{Text: text.String()}
}

func (a *Adapter) convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return a.fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return a.fromAPIError(*apiErrPtr, err)
	}
	return err
}

func (a *Adapter) fromAPIError(apiErr genai.APIError, cause error) error {
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = fmt.Sprintf("HTTP Error %d", apiErr.Code)
	}
	kind := models.KindForStatus(apiErr.Code)
	if apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "safety") {
		kind = models.ErrorContentPolicyBlocked
	}
	return models.NewProviderError(a.opts.Name, kind, apiErr.Code, message, cause)
}
