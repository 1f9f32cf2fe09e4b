package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

const (
	TaskTextImage      = "TEXT_IMAGE"
	TaskImageVariation = "IMAGE_VARIATION"
)

// Options controls how the Bedrock adapter is initialised.
type Options struct {
	Name            string
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Credentials replaces the default chain when set.
	Credentials aws.CredentialsProvider
	// Endpoint overrides the bedrock-runtime URL, e.g. a VPC interface endpoint.
	Endpoint string

	ModelID  string
	CfgScale float64
	Quality  string

	Logger *slog.Logger
}

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type identityProber interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Adapter composes images with Amazon Titan Image Generator on Bedrock.
type Adapter struct {
	client    invoker
	stsClient identityProber
	opts      Options
	logger    *slog.Logger
}

// New creates a Bedrock adapter using the provided credentials/region.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Region == "" {
		return nil, errors.New("bedrock region required")
	}
	if opts.ModelID == "" {
		return nil, errors.New("bedrock model id required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryMaxAttempts(1),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	switch {
	case opts.Credentials != nil:
		loadOpts = append(loadOpts, config.WithCredentialsProvider(opts.Credentials))
	case opts.AccessKeyID != "" && opts.SecretAccessKey != "":
		staticProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = opts.Region
	}
	if awsCfg.Credentials != nil {
		awsCfg.Credentials = guardedCredentials{awsCfg.Credentials}
	}
	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return newAdapter(opts, client, sts.NewFromConfig(awsCfg)), nil
}

// credentialError marks a failure to resolve AWS credentials. No request
// reached Bedrock when it is returned.
type credentialError struct {
	err error
}

func (e *credentialError) Error() string { return "resolve aws credentials: " + e.err.Error() }

func (e *credentialError) Unwrap() error { return e.err }

type guardedCredentials struct {
	aws.CredentialsProvider
}

func (g guardedCredentials) Retrieve(ctx context.Context) (aws.Credentials, error) {
	creds, err := g.CredentialsProvider.Retrieve(ctx)
	if err != nil {
		return creds, &credentialError{err: err}
	}
	return creds, nil
}

func newAdapter(opts Options, client invoker, stsClient identityProber) *Adapter {
	if opts.Name == "" {
		opts.Name = "bedrock"
	}
	if opts.CfgScale <= 0 {
		opts.CfgScale = 8
	}
	if strings.TrimSpace(opts.Quality) == "" {
		opts.Quality = "standard"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{client: client, stsClient: stsClient, opts: opts, logger: logger}
}

// Attempt runs an IMAGE_VARIATION task around the photo when one is supplied,
// otherwise a TEXT_IMAGE task from the prompt alone.
func (a *Adapter) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	body, err := json.Marshal(a.buildRequest(payload))
	if err != nil {
		return models.ImageOutcome{}, fmt.Errorf("encode titan image request: %w", err)
	}
	resp, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.opts.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		outcome, mapped := a.convertError(err)
		if outcome.Blocked {
			a.logger.WarnContext(ctx, "bedrock filtered composition", "provider", a.opts.Name, "reason", outcome.BlockReason)
			return outcome, nil
		}
		return models.ImageOutcome{}, mapped
	}
	return parseTitanResponse(resp.Body)
}

// HealthCheck verifies credentials through STS so no inference is billed.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.stsClient == nil {
		return errors.New("bedrock sts client not initialised")
	}
	_, err := a.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	return err
}

func (a *Adapter) buildRequest(payload models.ImagePayload) titanImageRequest {
	width, height := titanDimensions(payload.AspectRatio)
	req := titanImageRequest{
		ImageGenerationConfig: titanImageConfig{
			NumberOfImages: 1,
			Quality:        a.opts.Quality,
			CfgScale:       a.opts.CfgScale,
			Height:         height,
			Width:          width,
			Seed:           rand.New(rand.NewSource(time.Now().UnixNano())).Int31n(2147483646),
		},
	}
	prompt := truncatePrompt(payload.Prompt)
	if payload.Image != nil && len(payload.Image.Data) > 0 {
		req.TaskType = TaskImageVariation
		req.ImageVariationParams = &titanVariationParams{
			Text:               prompt,
			Images:             []string{base64.StdEncoding.EncodeToString(payload.Image.Data)},
			SimilarityStrength: 0.7,
		}
		return req
	}
	req.TaskType = TaskTextImage
	req.TextToImageParams = &titanTextParams{Text: prompt}
	return req
}

// convertError maps Bedrock exceptions onto the failure taxonomy. Titan
// reports content filtering as a ValidationException.
func (a *Adapter) convertError(err error) (models.ImageOutcome, error) {
	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}
	var credErr *credentialError
	if errors.As(err, &credErr) {
		return models.ImageOutcome{}, a.providerError(models.ErrorAuthOrQuota, status, credErr.Error(), err)
	}
	var validation *types.ValidationException
	if errors.As(err, &validation) {
		message := aws.ToString(validation.Message)
		if isContentFilterMessage(message) {
			return models.ImageOutcome{Blocked: true, BlockReason: message}, nil
		}
		return models.ImageOutcome{}, a.providerError(models.ErrorProviderRejected, status, message, err)
	}

	var (
		throttled   *types.ThrottlingException
		denied      *types.AccessDeniedException
		quota       *types.ServiceQuotaExceededException
		unavailable *types.ServiceUnavailableException
		timeout     *types.ModelTimeoutException
		internal    *types.InternalServerException
		notReady    *types.ModelNotReadyException
	)
	switch {
	case errors.As(err, &throttled), errors.As(err, &denied), errors.As(err, &quota):
		return models.ImageOutcome{}, a.providerError(models.ErrorAuthOrQuota, status, apiMessage(err), err)
	case errors.As(err, &unavailable), errors.As(err, &timeout), errors.As(err, &internal), errors.As(err, &notReady):
		return models.ImageOutcome{}, a.providerError(models.ErrorTransientTransport, status, apiMessage(err), err)
	}
	if status > 0 {
		return models.ImageOutcome{}, a.providerError(models.KindForStatus(status), status, apiMessage(err), err)
	}
	return models.ImageOutcome{}, err
}

func (a *Adapter) providerError(kind models.ErrorKind, status int, message string, cause error) error {
	if message == "" && status > 0 {
		message = fmt.Sprintf("HTTP Error %d", status)
	}
	return models.NewProviderError(a.opts.Name, kind, status, message, cause)
}

func apiMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return ""
}

func isContentFilterMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "content filter") || strings.Contains(lower, "responsible ai")
}

func parseTitanResponse(body []byte) (models.ImageOutcome, error) {
	var parsed titanImageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.ImageOutcome{}, fmt.Errorf("decode titan image response: %w", err)
	}
	for _, encoded := range parsed.Images {
		if strings.TrimSpace(encoded) == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return models.ImageOutcome{}, fmt.Errorf("decode titan image: %w", err)
		}
		return models.ImageOutcome{Image: data, MIMEType: models.DetectImageType(data)}, nil
	}
	if parsed.Error != nil && *parsed.Error != "" {
		if isContentFilterMessage(*parsed.Error) {
			return models.ImageOutcome{Blocked: true, BlockReason: *parsed.Error}, nil
		}
		return models.ImageOutcome{Text: *parsed.Error}, nil
	}
	return models.ImageOutcome{}, nil
}

// Titan caps prompts at 512 characters.
func truncatePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	runes := []rune(prompt)
	if len(runes) > 512 {
		return string(runes[:512])
	}
	return prompt
}

var titanSizes = map[string][2]int{
	"1:1":  {1024, 1024},
	"3:4":  {896, 1152},
	"4:3":  {1152, 896},
	"2:3":  {768, 1152},
	"3:2":  {1152, 768},
	"9:16": {768, 1280},
	"16:9": {1280, 768},
}

func titanDimensions(aspectRatio string) (int, int) {
	if size, ok := titanSizes[strings.TrimSpace(aspectRatio)]; ok {
		return size[0], size[1]
	}
	return 1024, 1024
}

