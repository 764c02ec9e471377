package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// MinioClient stores objects in an S3-compatible bucket.
type MinioClient struct {
	Client     *minio.Client
	BucketName string
}

// NewMinioClient connects to the configured endpoint and makes sure the
// bucket exists.
func NewMinioClient(ctx context.Context, cfg configmanagement.StorageConfig, logger *slog.Logger) (*MinioClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("SPACES_ENDPOINT, SPACES_KEY, SPACES_SECRET and SPACES_BUCKET must be set")
	}

	host, secure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.Bucket, err)
	}
	if !exists {
		logger.Info("bucket does not exist, creating it", "bucket", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.Bucket, err)
		}
	}

	logger.Info("object storage client initialized", "endpoint", host, "bucket", cfg.Bucket)
	return &MinioClient{Client: client, BucketName: cfg.Bucket}, nil
}

// parseEndpoint accepts either a bare host or a URL. A bare host is
// assumed to speak TLS.
func parseEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid storage endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid storage endpoint %q: missing host", endpoint)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("invalid storage endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}

func (mc *MinioClient) ready() error {
	if mc == nil || mc.Client == nil {
		return ErrNotInitialized
	}
	if mc.BucketName == "" {
		return fmt.Errorf("bucket name not configured")
	}
	return nil
}

// PutObject uploads reader under key, replacing any existing object.
func (mc *MinioClient) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := mc.ready(); err != nil {
		return err
	}
	_, err := mc.Client.PutObject(ctx, mc.BucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to bucket '%s': %w", key, mc.BucketName, err)
	}
	return nil
}

// Close is a no-op; the S3 client holds no long-lived connection.
func (mc *MinioClient) Close() error { return nil }
