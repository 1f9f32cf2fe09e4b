package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Capability describes what a provider accepts and emits.
type Capability string

const (
	CapabilityTextOnly      Capability = "TEXT_ONLY"
	CapabilityImageEdit     Capability = "IMAGE_EDIT"
	CapabilityImageGenerate Capability = "IMAGE_GENERATE"
)

// ParseCapability normalizes a configured capability value.
func ParseCapability(raw string) (Capability, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch Capability(value) {
	case CapabilityTextOnly, CapabilityImageEdit, CapabilityImageGenerate:
		return Capability(value), nil
	case "":
		return CapabilityImageGenerate, nil
	default:
		return "", fmt.Errorf("unknown capability %q", raw)
	}
}

// AcceptsImage reports whether the source photo is sent inline to the provider.
func (c Capability) AcceptsImage() bool {
	return c == CapabilityImageEdit || c == CapabilityImageGenerate
}

// ProviderConfig is the static description of one entry in the fallback lineup.
type ProviderConfig struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Model          string            `json:"model"`
	Priority       int               `json:"priority"`
	Capability     Capability        `json:"capability"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	CostPerImage   decimal.Decimal   `json:"cost_per_image"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ErrorKind classifies provider and orchestration failures.
type ErrorKind string

const (
	ErrorTransientTransport    ErrorKind = "TRANSIENT_TRANSPORT"
	ErrorContentPolicyBlocked  ErrorKind = "CONTENT_POLICY_BLOCKED"
	ErrorUnsupportedOutput     ErrorKind = "UNSUPPORTED_OUTPUT"
	ErrorAuthOrQuota           ErrorKind = "AUTH_OR_QUOTA"
	ErrorProviderRejected      ErrorKind = "PROVIDER_REJECTED"
	ErrorAllProvidersExhausted ErrorKind = "ALL_PROVIDERS_EXHAUSTED"
	ErrorInvalidRequest        ErrorKind = "INVALID_REQUEST"
	ErrorCanceled              ErrorKind = "CANCELED"
)

// Retryable reports whether a failure of this kind may be retried on the same provider.
func (k ErrorKind) Retryable() bool {
	return k == ErrorTransientTransport
}

// OutcomeSuccess marks the attempt that produced the returned image.
const OutcomeSuccess = "success"

// ProviderAttempt is one entry of the attempt trail.
type ProviderAttempt struct {
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Tries    int           `json:"tries"`
	Latency  time.Duration `json:"-"`
}

// Succeeded reports whether the attempt produced an image.
func (a ProviderAttempt) Succeeded() bool {
	return a.Outcome == OutcomeSuccess
}

// GenerationResult is returned when a provider produced an image.
type GenerationResult struct {
	Image        []byte
	MIMEType     string
	ProviderUsed string
	Attempts     []ProviderAttempt
	Cost         decimal.Decimal
}

// GenerationError is the terminal failure of an orchestration call.
type GenerationError struct {
	Kind     ErrorKind
	Message  string
	Attempts []ProviderAttempt
	cause    error
}

// NewGenerationError builds a terminal error, optionally wrapping the cause.
func NewGenerationError(kind ErrorKind, message string, attempts []ProviderAttempt, cause error) *GenerationError {
	return &GenerationError{Kind: kind, Message: message, Attempts: attempts, cause: cause}
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", strings.ToLower(string(e.Kind)), e.Message)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}
