// Package storage provides the opaque blob store behind the attachment
// pipeline. Objects are retrievable by the returned URL alone.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DiskBlobStore writes objects under a root directory and serves them from
// a base URL. It stands in for whatever bucket the surrounding application
// uses; the URL it returns is stable and not time-limited.
type DiskBlobStore struct {
	root    string
	baseURL string
	log     *slog.Logger
}

func NewDiskBlobStore(root, baseURL string, log *slog.Logger) *DiskBlobStore {
	return &DiskBlobStore{root: root, baseURL: baseURL, log: log}
}

// Put stores the object under the given key, creating namespace directories
// as needed, and returns its public URL.
func (s *DiskBlobStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating blob namespace: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		// A half-written object must not become retrievable.
		_ = os.Remove(path)
		return "", fmt.Errorf("writing blob: %w", err)
	}

	s.log.Debug("Blob stored", "key", key, "bytes", written)
	return s.baseURL + "/" + key, nil
}
