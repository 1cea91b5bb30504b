package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactStore is durable storage for receipt documents. Existence must be
// independently checkable so a dangling pointer on a payment row can be
// detected and healed.
type ArtifactStore interface {
	Save(ctx context.Context, fileName string, data []byte) (key string, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	URL(ctx context.Context, key string) (string, error)
}

// LocalArtifactStore keeps artifacts on disk under BaseDir and serves them
// through the public /receipts route.
type LocalArtifactStore struct {
	BaseDir      string
	PublicPrefix string // URL prefix where files are served, e.g. "/receipts"
	BaseURL      string // optional absolute base URL (scheme+host[:port])
}

func NewLocalArtifactStore(baseDir, publicPrefix, baseURL string) (*LocalArtifactStore, error) {
	if baseDir == "" {
		baseDir = "./receipts"
	}
	if publicPrefix == "" {
		publicPrefix = "/receipts"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure artifact dir %q: %w", baseDir, err)
	}

	return &LocalArtifactStore{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

func (s *LocalArtifactStore) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	// sanitize provided filename to avoid path traversal
	fileName = filepath.Base(fileName)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	key := fmt.Sprintf("%s_%s", hex.EncodeToString(randBytes), fileName)

	path := filepath.Join(s.BaseDir, key)
	// write file atomically
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return key, nil
}

func (s *LocalArtifactStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.BaseDir, filepath.Base(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalArtifactStore) Read(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.BaseDir, filepath.Base(key)))
}

func (s *LocalArtifactStore) URL(ctx context.Context, key string) (string, error) {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/receipts"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}

	if s.BaseURL != "" {
		base := s.BaseURL
		if base[len(base)-1] == '/' {
			base = base[:len(base)-1]
		}
		return fmt.Sprintf("%s%s/%s", base, prefix, key), nil
	}
	return fmt.Sprintf("%s/%s", prefix, key), nil
}
