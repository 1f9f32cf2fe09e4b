package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

var jpegBytes = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00rest")

func sampleRequest() models.GenerationRequest {
	return models.GenerationRequest{
		SourceImage:        jpegBytes,
		SubjectDescription: "Moses",
		Attire:             models.AttireBiblicalEra,
		Style:              models.StyleCinematic,
		AspectRatio:        "3:4",
	}
}

func TestBuildPayloadInlinesImageForEditProviders(t *testing.T) {
	for _, capability := range []models.Capability{models.CapabilityImageEdit, models.CapabilityImageGenerate} {
		payload := BuildPayload(models.ProviderConfig{Capability: capability}, sampleRequest())
		if payload.Image == nil || string(payload.Image.Data) != string(jpegBytes) {
			t.Fatalf("%s: expected inline image", capability)
		}
		if payload.Image.ContentType != "image/jpeg" {
			t.Fatalf("%s: expected sniffed content type, got %q", capability, payload.Image.ContentType)
		}
		if !strings.Contains(payload.Prompt, "Moses") || payload.AspectRatio != "3:4" {
			t.Fatalf("%s: unexpected payload %+v", capability, payload)
		}
	}
}

func TestBuildPayloadTextOnlyOmitsImage(t *testing.T) {
	payload := BuildPayload(models.ProviderConfig{Capability: models.CapabilityTextOnly}, sampleRequest())
	if payload.Image != nil {
		t.Fatalf("text-only provider must not receive the photo")
	}
	if !strings.Contains(payload.Prompt, "Moses") {
		t.Fatalf("expected subject in prompt, got %q", payload.Prompt)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"explicit kind", models.NewProviderError("p", models.ErrorContentPolicyBlocked, 400, "blocked", nil), models.ErrorContentPolicyBlocked},
		{"status only", &models.ProviderError{Status: 503}, models.ErrorTransientTransport},
		{"auth status", &models.ProviderError{Status: 401}, models.ErrorAuthOrQuota},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), models.ErrorTransientTransport},
		{"canceled", context.Canceled, models.ErrorCanceled},
		{"net", timeoutErr{}, models.ErrorTransientTransport},
		{"unknown", errors.New("boom"), models.ErrorTransientTransport},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestReason(t *testing.T) {
	if got := Reason(models.NewProviderError("p", models.ErrorAuthOrQuota, 403, "API key not valid", nil)); got != "API key not valid" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := Reason(context.DeadlineExceeded); got != "provider call timed out" {
		t.Fatalf("unexpected reason %q", got)
	}
}
