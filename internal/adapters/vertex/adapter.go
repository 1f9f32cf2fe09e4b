package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Options configure the Vertex Imagen adapter.
type Options struct {
	Name             string
	ProjectID        string
	Location         string
	Publisher        string
	Model            string
	Endpoint         string
	CredentialsJSON  []byte
	PersonGeneration string
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Adapter composes images through the Imagen predict endpoint.
type Adapter struct {
	name             string
	client           *http.Client
	baseURL          string
	predictURL       string
	personGeneration string
	logger           *slog.Logger
}

// New creates a Vertex adapter using service-account credentials. A supplied
// HTTPClient is used as-is and skips credential loading.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Model == "" {
		return nil, errors.New("vertex: model id required")
	}
	base := strings.TrimSpace(opts.Endpoint)
	if base == "" {
		if opts.ProjectID == "" {
			return nil, errors.New("vertex: project id required")
		}
		if opts.Location == "" {
			return nil, errors.New("vertex: location required")
		}
		publisher := strings.TrimSpace(opts.Publisher)
		if publisher == "" {
			publisher = "google"
		}
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/%s/models/%s",
			opts.Location, opts.ProjectID, opts.Location, publisher, opts.Model)
	}
	base = strings.TrimSuffix(base, ":predict")
	base = strings.TrimSuffix(base, "/")
	if err := checkEndpoint(base); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if len(opts.CredentialsJSON) == 0 {
			return nil, errors.New("vertex: credentials json required")
		}
		creds, err := google.CredentialsFromJSON(ctx, opts.CredentialsJSON, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("vertex: load credentials: %w", err)
		}
		httpClient = oauth2.NewClient(ctx, creds.TokenSource)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "vertex"
	}

	return &Adapter{
		name:             name,
		client:           httpClient,
		baseURL:          base,
		predictURL:       base + ":predict",
		personGeneration: strings.TrimSpace(opts.PersonGeneration),
		logger:           logger,
	}, nil
}

// Attempt calls :predict. When the payload carries a photo it is sent as a raw
// reference image so Imagen edits around it; otherwise the prompt stands alone.
func (a *Adapter) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		return models.ImageOutcome{}, models.NewProviderError(a.name, models.ErrorProviderRejected, 0, "prompt required", nil)
	}
	instance := imageInstance{Prompt: prompt}
	params := imageParameters{
		SampleCount:      1,
		AspectRatio:      strings.TrimSpace(payload.AspectRatio),
		PersonGeneration: a.personGeneration,
		IncludeRAIReason: true,
	}
	if payload.Image != nil && len(payload.Image.Data) > 0 {
		instance.ReferenceImages = []referenceImage{{
			ReferenceType: "REFERENCE_TYPE_RAW",
			ReferenceID:   1,
			ReferenceImage: referenceImageData{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(payload.Image.Data),
			},
		}}
	}
	req := predictRequest{Instances: []imageInstance{instance}, Parameters: params}

	var resp predictResponse
	if err := a.postJSON(ctx, a.predictURL, req, &resp); err != nil {
		return models.ImageOutcome{}, err
	}
	outcome, err := convertPredictResponse(resp)
	if err != nil {
		return models.ImageOutcome{}, models.NewProviderError(a.name, models.ErrorUnsupportedOutput, 0, err.Error(), err)
	}
	if outcome.Blocked {
		a.logger.WarnContext(ctx, "vertex filtered composition", "provider", a.name, "reason", outcome.BlockReason)
	}
	return outcome, nil
}

// HealthCheck issues a GET against the model resource; only 5xx counts as down.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vertex health check status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (a *Adapter) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vertex encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.NewProviderError(a.name, models.ErrorProviderRejected, 0, "invalid predict url", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return a.transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(a.name, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vertex decode response: %w", err)
	}
	return nil
}

// transportError reports a failed token exchange as AUTH_OR_QUOTA. Other
// transport errors pass through unchanged.
func (a *Adapter) transportError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return err
	}
	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	msg := "credential exchange failed"
	if rerr.ErrorCode != "" {
		msg += ": " + rerr.ErrorCode
	}
	return models.NewProviderError(a.name, models.ErrorAuthOrQuota, status, msg, err)
}

// checkEndpoint requires an absolute URL naming the model resource, since
// ":predict" is appended to its path.
func checkEndpoint(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("vertex: invalid endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("vertex: endpoint %q must be an absolute http(s) url", base)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("vertex: endpoint %q must include the model path", base)
	}
	return nil
}
