package models

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxImageBytes mirrors the upload ceiling enforced on user photos.
const DefaultMaxImageBytes = 5 << 20

// ImageInput stores a binary image payload in-memory so the same data can be
// re-read if multiple providers are attempted.
type ImageInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Reader returns a fresh ReadCloser for the stored image bytes.
func (in ImageInput) Reader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(in.Data))
}

// Size exposes the number of bytes in the image payload.
func (in ImageInput) Size() int64 {
	return int64(len(in.Data))
}

// MIMEType returns the declared content type, sniffing the payload when the
// caller did not supply one.
func (in ImageInput) MIMEType() string {
	if ct := strings.TrimSpace(in.ContentType); ct != "" {
		return ct
	}
	return DetectImageType(in.Data)
}

// DetectImageType sniffs the content type of raw bytes, stripping parameters.
func DetectImageType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	ct := http.DetectContentType(data)
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}

// IsImageType reports whether the MIME type names an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
