package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

const (
	defaultExportDir = "./data/exports"
	sidecarSuffix    = ".info.json"
	partialSuffix    = ".partial"
)

// localStore keeps exports under a directory opened as an os.Root, so keys
// can never resolve outside of it.
type localStore struct {
	root *os.Root
	mu   sync.Mutex
}

type sidecar struct {
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func newLocalStore(cfg config.ExportLocalConfig) (*localStore, error) {
	dir := strings.TrimSpace(cfg.Directory)
	if dir == "" {
		dir = defaultExportDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("exports.local.directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("exports.local.directory: %w", err)
	}
	return &localStore{root: root}, nil
}

func (s *localStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error) {
	name, err := localName(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if dir := path.Dir(name); dir != "." {
		if err := s.root.MkdirAll(dir, 0o750); err != nil {
			return ObjectInfo{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	size, err := s.writeObject(name, body)
	if err != nil {
		return ObjectInfo{}, err
	}
	meta, err := json.Marshal(sidecar{ContentType: opts.ContentType, Size: size, Metadata: opts.Metadata})
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := s.root.WriteFile(name+sidecarSuffix, meta, 0o640); err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: size, ContentType: opts.ContentType, Metadata: opts.Metadata}, nil
}

// writeObject streams body to a partial file and renames it into place.
func (s *localStore) writeObject(name string, body io.Reader) (int64, error) {
	partial := name + partialSuffix
	f, err := s.root.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, body)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.root.Rename(partial, name)
	}
	if err != nil {
		_ = s.root.Remove(partial)
		return 0, err
	}
	return size, nil
}

func (s *localStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	name, err := localName(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	raw, err := s.root.ReadFile(name + sidecarSuffix)
	if err != nil {
		return nil, ObjectInfo{}, notFound(err)
	}
	var meta sidecar
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("export %s: corrupt metadata: %w", key, err)
	}
	f, err := s.root.Open(name)
	if err != nil {
		return nil, ObjectInfo{}, notFound(err)
	}
	return f, ObjectInfo{Key: key, Size: meta.Size, ContentType: meta.ContentType, Metadata: meta.Metadata}, nil
}

func (s *localStore) Delete(_ context.Context, key string) error {
	name, err := localName(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range []string{name, name + sidecarSuffix} {
		if err := s.root.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func localName(key string) (string, error) {
	name := path.Clean(strings.TrimPrefix(key, "/"))
	if !fs.ValidPath(name) || name == "." || strings.HasSuffix(name, sidecarSuffix) || strings.HasSuffix(name, partialSuffix) {
		return "", fmt.Errorf("invalid export key %q", key)
	}
	return name, nil
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
