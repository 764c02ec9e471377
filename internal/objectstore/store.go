// Package objectstore uploads pipeline artifacts to a bucket. Two backends
// are available: an S3-compatible endpoint such as DigitalOcean Spaces, and
// a NATS JetStream object store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// ErrNotInitialized is returned by a store whose client was never set up.
var ErrNotInitialized = errors.New("object store client not initialized")

// Store writes objects under caller-chosen keys. Writing an existing key
// replaces it. Stored artifacts are never read back or deleted by the
// service.
type Store interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Close() error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg configmanagement.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case configmanagement.StorageSpaces:
		return NewMinioClient(ctx, cfg, logger)
	case configmanagement.StorageNATS:
		return DialNatsObjectStore(ctx, cfg.NATSURL, cfg.NATSBucket)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
