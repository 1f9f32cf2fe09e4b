package blob

import (
	"context"
	"errors"
	"io"
	"maps"
	"strings"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

// ErrNotFound is returned when an exported composition does not exist.
var ErrNotFound = errors.New("export not found")

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	Encrypted   bool
}

// Store persists exported composition images.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type sealedStore struct {
	backend Store
	sealer  *encryptor
}

// New builds the export store described by cfg. Objects are sealed with
// AES-GCM when an encryption key is configured.
func New(ctx context.Context, cfg config.ExportConfig) (Store, error) {
	var (
		backend Store
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case "s3":
		backend, err = newS3Store(ctx, cfg.S3)
	case "", "local":
		backend, err = newLocalStore(cfg.Local)
	default:
		return nil, errors.New("exports.storage must be local or s3")
	}
	if err != nil {
		return nil, err
	}
	sealer, err := newEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		return backend, nil
	}
	return &sealedStore{backend: backend, sealer: sealer}, nil
}

func (s *sealedStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error) {
	sealed, size, meta, err := s.sealer.encrypt(body)
	if err != nil {
		return ObjectInfo{}, err
	}
	merged := mergeMetadata(opts.Metadata, meta)
	info, err := s.backend.Put(ctx, key, sealed, PutOptions{ContentType: opts.ContentType, Metadata: merged})
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Size = size
	info.Metadata = merged
	info.Encrypted = true
	return info, nil
}

func (s *sealedStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if !isEncrypted(info.Metadata) {
		return reader, info, nil
	}
	defer reader.Close()
	plain, size, err := s.sealer.decrypt(reader)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info.Size = size
	info.Encrypted = true
	return plain, info, nil
}

func (s *sealedStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func mergeMetadata(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make(map[string]string, len(a)+len(b))
	maps.Copy(merged, a)
	maps.Copy(merged, b)
	return merged
}

func isEncrypted(meta map[string]string) bool {
	_, ok := meta[encryptionMetadataKey]
	return ok
}
