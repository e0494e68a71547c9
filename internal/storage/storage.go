// Package storage persists uploaded images on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"connectiu-backend/internal/config"

	"github.com/google/uuid"
)

// Store saves an object and returns the URL clients use to fetch it
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.S3, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewKey returns a random object name keeping the original extension,
// falling back to one derived from the content type
func NewKey(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.New().String() + ext
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
