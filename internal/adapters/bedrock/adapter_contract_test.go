package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/providers/fixtures"
)

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestAttemptVariationWithPhoto(t *testing.T) {
	body := fixtures.Bytes(t, "bedrock_titan_image.json")
	fake := &fakeInvoker{body: body}
	adapter := newAdapter(Options{Name: "titan", ModelID: "amazon.titan-image-generator-v2:0"}, fake, nil)

	img := models.ImageInput{Data: []byte("photo")}
	outcome, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose", Image: &img, AspectRatio: "3:4"})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if string(outcome.Image) != "PNGDATA" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	var sent titanImageRequest
	if err := json.Unmarshal(fake.input.Body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.TaskType != TaskImageVariation || sent.ImageVariationParams == nil || len(sent.ImageVariationParams.Images) != 1 {
		t.Fatalf("expected variation task, got %+v", sent)
	}
	if sent.ImageGenerationConfig.Width != 896 || sent.ImageGenerationConfig.Height != 1152 {
		t.Fatalf("unexpected dimensions %+v", sent.ImageGenerationConfig)
	}
	if aws.ToString(fake.input.ModelId) != "amazon.titan-image-generator-v2:0" {
		t.Fatalf("unexpected model id %q", aws.ToString(fake.input.ModelId))
	}
}

func TestAttemptTextImageWithoutPhoto(t *testing.T) {
	body := fixtures.Bytes(t, "bedrock_titan_image.json")
	fake := &fakeInvoker{body: body}
	adapter := newAdapter(Options{ModelID: "amazon.titan-image-generator-v2:0"}, fake, nil)
	if _, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "describe"}); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	var sent titanImageRequest
	_ = json.Unmarshal(fake.input.Body, &sent)
	if sent.TaskType != TaskTextImage || sent.TextToImageParams == nil || sent.ImageVariationParams != nil {
		t.Fatalf("expected text-to-image task, got %+v", sent)
	}
}

func TestAttemptContentFilterIsBlocked(t *testing.T) {
	fake := &fakeInvoker{err: &types.ValidationException{Message: aws.String("This request has been blocked by our content filters.")}}
	adapter := newAdapter(Options{ModelID: "m"}, fake, nil)
	outcome, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
	if err != nil {
		t.Fatalf("expected blocked outcome, got %v", err)
	}
	if !outcome.Blocked {
		t.Fatalf("expected blocked outcome, got %+v", outcome)
	}
}

func TestAttemptClassifiesExceptions(t *testing.T) {
	cases := []struct {
		err  error
		want models.ErrorKind
	}{
		{&types.ThrottlingException{Message: aws.String("slow down")}, models.ErrorAuthOrQuota},
		{&types.AccessDeniedException{Message: aws.String("denied")}, models.ErrorAuthOrQuota},
		{&types.ModelTimeoutException{Message: aws.String("timeout")}, models.ErrorTransientTransport},
		{&types.ServiceUnavailableException{Message: aws.String("down")}, models.ErrorTransientTransport},
		{&types.ValidationException{Message: aws.String("bad dimensions")}, models.ErrorProviderRejected},
	}
	for _, tc := range cases {
		adapter := newAdapter(Options{ModelID: "m"}, &fakeInvoker{err: tc.err}, nil)
		_, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
		var perr *models.ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("%T: expected provider error, got %v", tc.err, err)
		}
		if perr.Kind != tc.want {
			t.Fatalf("%T: expected %s, got %s", tc.err, tc.want, perr.Kind)
		}
	}
}

func TestAttemptCredentialFailureIsAuthOrQuota(t *testing.T) {
	missing := &credentialError{err: errors.New("no EC2 IMDS role found")}
	opErr := &smithy.OperationError{
		ServiceID:     "Bedrock Runtime",
		OperationName: "InvokeModel",
		Err:           fmt.Errorf("get identity: %w", missing),
	}
	adapter := newAdapter(Options{Name: "titan", ModelID: "m"}, &fakeInvoker{err: opErr}, nil)
	_, err := adapter.Attempt(context.Background(), models.ImagePayload{Prompt: "compose"})
	var perr *models.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != models.ErrorAuthOrQuota || perr.Provider != "titan" {
		t.Fatalf("unexpected classification %+v", perr)
	}
	if !strings.Contains(perr.Message, "no EC2 IMDS role found") {
		t.Fatalf("unexpected message %q", perr.Message)
	}
}

func TestGuardedCredentialsTagsFailures(t *testing.T) {
	root := errors.New("static credentials are empty")
	guarded := guardedCredentials{aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, root
	})}
	_, err := guarded.Retrieve(context.Background())
	var credErr *credentialError
	if !errors.As(err, &credErr) || !errors.Is(err, root) {
		t.Fatalf("expected tagged credential error, got %v", err)
	}

	ok := guardedCredentials{aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"}, nil
	})}
	creds, err := ok.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" {
		t.Fatalf("expected credentials to pass through, got %+v (%v)", creds, err)
	}
}

func TestParseTitanResponseError(t *testing.T) {
	outcome, err := parseTitanResponse([]byte(`{"images":[],"error":"The generated image has been blocked by our content filters."}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !outcome.Blocked {
		t.Fatalf("expected blocked outcome, got %+v", outcome)
	}
}

func TestTruncatePrompt(t *testing.T) {
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'a'
	}
	if got := truncatePrompt(string(long)); len([]rune(got)) != 512 {
		t.Fatalf("expected 512 runes, got %d", len([]rune(got)))
	}
}
