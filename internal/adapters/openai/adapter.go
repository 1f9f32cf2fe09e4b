package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

const contentPolicyCode = "content_policy_violation"

// Options configure the native OpenAI adapter.
type Options struct {
	Name         string
	APIKey       string
	BaseURL      string
	Organization string
	Model        string
	Size         string
	Quality      string
	HTTPClient   *http.Client
	Logger       *slog.Logger
	Extra        []option.RequestOption
}

// Adapter wraps the official OpenAI SDK Images API.
type Adapter struct {
	name       string
	model      string
	size       string
	quality    string
	client     *openai.Client
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an OpenAI adapter using the provided API key and optional base URL/organization.
func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("openai: model required")
	}

	// Retries belong to the orchestrator.
	requestOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if strings.TrimSpace(opts.BaseURL) != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if strings.TrimSpace(opts.Organization) != "" {
		requestOpts = append(requestOpts, option.WithOrganization(strings.TrimSpace(opts.Organization)))
	}
	httpClient := opts.HTTPClient
	if httpClient != nil {
		requestOpts = append(requestOpts, option.WithHTTPClient(httpClient))
	} else {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	requestOpts = append(requestOpts, opts.Extra...)

	client := openai.NewClient(requestOpts...)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "openai"
	}

	return &Adapter{
		name:       name,
		model:      opts.Model,
		size:       strings.TrimSpace(opts.Size),
		quality:    strings.TrimSpace(opts.Quality),
		client:     &client,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Attempt edits the photo when one is supplied, otherwise generates from the prompt alone.
func (a *Adapter) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		return models.ImageOutcome{}, models.NewProviderError(a.name, models.ErrorProviderRejected, 0, "prompt required", nil)
	}
	var (
		resp *openai.ImagesResponse
		err  error
	)
	if payload.Image != nil && len(payload.Image.Data) > 0 {
		resp, err = a.edit(ctx, prompt, payload)
	} else {
		resp, err = a.generate(ctx, prompt, payload)
	}
	if err != nil {
		outcome, mapped := a.convertError(err)
		if outcome.Blocked {
			a.logger.WarnContext(ctx, "openai rejected composition", "provider", a.name, "reason", outcome.BlockReason)
			return outcome, nil
		}
		return models.ImageOutcome{}, mapped
	}
	return a.convertImageResponse(ctx, resp)
}

func (a *Adapter) generate(ctx context.Context, prompt string, payload models.ImagePayload) (*openai.ImagesResponse, error) {
	params := openai.ImageGenerateParams{
		Model:  openai.ImageModel(a.model),
		Prompt: prompt,
	}
	if size := a.sizeFor(payload.AspectRatio); size != "" {
		params.Size = openai.ImageGenerateParamsSize(size)
	}
	if a.quality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(a.quality)
	}
	if a.legacyModel() {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}
	return a.client.Images.Generate(ctx, params)
}

func (a *Adapter) edit(ctx context.Context, prompt string, payload models.ImagePayload) (*openai.ImagesResponse, error) {
	params := openai.ImageEditParams{
		Model:  openai.ImageModel(a.model),
		Prompt: prompt,
	}
	if size := a.sizeFor(payload.AspectRatio); size != "" {
		params.Size = openai.ImageEditParamsSize(size)
	}
	if a.quality != "" {
		params.Quality = openai.ImageEditParamsQuality(a.quality)
	}
	if a.legacyModel() {
		params.ResponseFormat = openai.ImageEditParamsResponseFormatB64JSON
	}
	reader := payload.Image.Reader()
	defer reader.Close()
	filename := payload.Image.Filename
	if filename == "" {
		filename = "photo" + extensionFor(payload.Image.MIMEType())
	}
	params.Image.OfFile = openai.File(reader, filename, payload.Image.MIMEType())
	return a.client.Images.Edit(ctx, params)
}

// HealthCheck uses the Models API as a lightweight readiness probe.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.List(ctx)
	if err != nil {
		_, mapped := a.convertError(err)
		return mapped
	}
	return nil
}

func (a *Adapter) legacyModel() bool {
	return strings.HasPrefix(strings.ToLower(a.model), "dall-e")
}

// sizeFor honours a configured size, otherwise picks the closest supported
// canvas for the requested aspect ratio.
func (a *Adapter) sizeFor(aspectRatio string) string {
	if a.size != "" {
		return a.size
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(aspectRatio), "%d:%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return ""
	}
	switch {
	case w == h:
		return "1024x1024"
	case w > h:
		return "1536x1024"
	default:
		return "1024x1536"
	}
}

func (a *Adapter) convertImageResponse(ctx context.Context, resp *openai.ImagesResponse) (models.ImageOutcome, error) {
	if resp == nil || len(resp.Data) == 0 {
		return models.ImageOutcome{}, nil
	}
	var revised string
	for _, item := range resp.Data {
		if encoded := strings.TrimSpace(item.B64JSON); encoded != "" {
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return models.ImageOutcome{}, models.NewProviderError(a.name, models.ErrorUnsupportedOutput, 0, "invalid base64 image", err)
			}
			return models.ImageOutcome{Image: data, MIMEType: models.DetectImageType(data)}, nil
		}
		if url := strings.TrimSpace(item.URL); url != "" {
			return a.download(ctx, url)
		}
		if revised == "" {
			revised = item.RevisedPrompt
		}
	}
	return models.ImageOutcome{Text: revised}, nil
}

func (a *Adapter) download(ctx context.Context, url string) (models.ImageOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ImageOutcome{}, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.ImageOutcome{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return models.ImageOutcome{}, models.NewProviderError(a.name, models.KindForStatus(resp.StatusCode), resp.StatusCode, "", nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return models.ImageOutcome{}, err
	}
	mimeType := resp.Header.Get("Content-Type")
	if !models.IsImageType(mimeType) {
		mimeType = models.DetectImageType(data)
	}
	return models.ImageOutcome{Image: data, MIMEType: mimeType}, nil
}

// convertError maps SDK errors onto the failure taxonomy. Content policy
// rejections come back as a blocked outcome instead of an error.
func (a *Adapter) convertError(err error) (models.ImageOutcome, error) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return models.ImageOutcome{}, err
	}
	message := strings.TrimSpace(apiErr.Message)
	if apiErr.Code == contentPolicyCode {
		if message == "" {
			message = contentPolicyCode
		}
		return models.ImageOutcome{Blocked: true, BlockReason: message}, nil
	}
	if message == "" {
		message = fmt.Sprintf("HTTP Error %d", apiErr.StatusCode)
	}
	return models.ImageOutcome{}, models.NewProviderError(a.name, models.KindForStatus(apiErr.StatusCode), apiErr.StatusCode, message, err)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
