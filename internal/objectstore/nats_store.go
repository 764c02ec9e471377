package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsObjectStore stores objects in a JetStream object store bucket.
type NatsObjectStore struct {
	conn   *nats.Conn
	bucket string
	store  jetstream.ObjectStore
}

// DialNatsObjectStore connects to url and opens bucket. The returned store
// owns the connection and closes it on Close.
func DialNatsObjectStore(ctx context.Context, url, bucket string) (*NatsObjectStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	store, err := NewNatsObjectStore(ctx, conn, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	store.conn = conn
	return store, nil
}

// NewNatsObjectStore binds to bucket, creating it when it does not exist.
// The caller keeps ownership of conn.
func NewNatsObjectStore(ctx context.Context, conn *nats.Conn, bucket string) (*NatsObjectStore, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: fmt.Sprintf("Pipeline artifacts for the %s bucket.", bucket),
			Storage:     jetstream.FileStorage,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to bind to object store bucket '%s': %w", bucket, err)
	}

	return &NatsObjectStore{bucket: bucket, store: store}, nil
}

// PutObject saves reader under key. Size is advisory; the object store
// chunks the stream itself.
func (n *NatsObjectStore) PutObject(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if n == nil || n.store == nil {
		return ErrNotInitialized
	}
	meta := jetstream.ObjectMeta{Name: key}
	if contentType != "" {
		meta.Headers = nats.Header{"Content-Type": []string{contentType}}
	}
	if _, err := n.store.Put(ctx, meta, reader); err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}
	return nil
}

// Close drains the owned connection, if any.
func (n *NatsObjectStore) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
