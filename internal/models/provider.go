package models

import (
	"fmt"
	"net/http"
)

// ImagePayload is the provider-specific request built from a GenerationRequest.
// Image is nil for text-only providers.
type ImagePayload struct {
	Prompt      string
	Image       *ImageInput
	AspectRatio string
}

// ImageOutcome is what a provider call produced. Exactly one of Image, Text or
// Blocked is expected to be meaningful.
type ImageOutcome struct {
	Image       []byte
	MIMEType    string
	Text        string
	Blocked     bool
	BlockReason string
}

// HasImage reports whether the outcome carries image bytes.
func (o ImageOutcome) HasImage() bool {
	return len(o.Image) > 0
}

// ProviderError is the classified failure returned by provider adapters.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
	Cause    error
}

// NewProviderError builds a classified error for the named provider.
func NewProviderError(provider string, kind ErrorKind, status int, message string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Status: status, Message: message, Cause: cause}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" && e.Status > 0 {
		msg = fmt.Sprintf("HTTP Error %d", e.Status)
	}
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindForStatus maps an HTTP status code onto the failure taxonomy.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return ErrorAuthOrQuota
	case status == http.StatusRequestTimeout, status >= 500:
		return ErrorTransientTransport
	case status >= 400:
		return ErrorProviderRejected
	default:
		return ErrorTransientTransport
	}
}
