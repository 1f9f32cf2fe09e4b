package blob

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	encryptionMetadataKey = "blob-encryption"
	encryptionNonceKey    = "blob-nonce"
	encryptionMethod      = "aes-gcm"
)

var errSealedTooShort = errors.New("sealed export payload too short")

// encryptor seals exports with AES-GCM. The nonce is prepended to the
// ciphertext and mirrored in object metadata.
type encryptor struct {
	aead cipher.AEAD
}

func newEncryptor(raw string) (*encryptor, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("exports.encryption_key must be base64: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("exports.encryption_key must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptor{aead: aead}, nil
}

func (e *encryptor) encrypt(r io.Reader) (io.Reader, int64, map[string]string, error) {
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, nil, err
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, 0, nil, err
	}
	sealed := e.aead.Seal(nonce, nonce, plain, nil)
	meta := map[string]string{
		encryptionMetadataKey: encryptionMethod,
		encryptionNonceKey:    base64.StdEncoding.EncodeToString(nonce),
	}
	return bytes.NewReader(sealed), int64(len(plain)), meta, nil
}

func (e *encryptor) decrypt(r io.Reader) (io.ReadCloser, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	size := e.aead.NonceSize()
	if len(data) < size {
		return nil, 0, errSealedTooShort
	}
	plain, err := e.aead.Open(nil, data[:size], data[size:], nil)
	if err != nil {
		return nil, 0, fmt.Errorf("open sealed export: %w", err)
	}
	return io.NopCloser(bytes.NewReader(plain)), int64(len(plain)), nil
}
