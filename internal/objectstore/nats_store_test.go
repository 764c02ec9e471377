package objectstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	conn, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		natsServer.Shutdown()
		t.Fatalf("failed to connect to test NATS server: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		natsServer.Shutdown()
	})
	return natsServer, conn
}

func readObject(t *testing.T, s *NatsObjectStore, key string) []byte {
	t.Helper()
	data, err := s.store.GetBytes(context.Background(), key)
	require.NoError(t, err)
	return data
}

func TestNatsObjectStorePutGet(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	ctx := context.Background()

	store, err := NewNatsObjectStore(ctx, conn, "artifacts")
	require.NoError(t, err)

	data := []byte("not really a jpeg")
	require.NoError(t, store.PutObject(ctx, "A_cat.jpg", bytes.NewReader(data), int64(len(data)), "image/jpeg"))

	require.Equal(t, data, readObject(t, store, "A_cat.jpg"))

	info, err := store.store.GetInfo(ctx, "A_cat.jpg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", info.Headers.Get("Content-Type"))
}

func TestNatsObjectStoreSameKeyOverwrites(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	ctx := context.Background()

	store, err := NewNatsObjectStore(ctx, conn, "artifacts")
	require.NoError(t, err)

	require.NoError(t, store.PutObject(ctx, "A_cat.jpg", bytes.NewReader([]byte("first")), 5, "image/jpeg"))
	require.NoError(t, store.PutObject(ctx, "A_cat.jpg", bytes.NewReader([]byte("second")), 6, "image/jpeg"))

	require.Equal(t, []byte("second"), readObject(t, store, "A_cat.jpg"))
}

func TestNatsObjectStoreBindsExistingBucket(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	ctx := context.Background()

	first, err := NewNatsObjectStore(ctx, conn, "artifacts")
	require.NoError(t, err)
	require.NoError(t, first.PutObject(ctx, "kept.jpg", bytes.NewReader([]byte("x")), 1, ""))

	second, err := NewNatsObjectStore(ctx, conn, "artifacts")
	require.NoError(t, err)

	require.Equal(t, []byte("x"), readObject(t, second, "kept.jpg"))
}

func TestNatsObjectStoreCloseWithoutOwnedConnection(t *testing.T) {
	t.Parallel()

	_, conn := startTestServer(t)
	store, err := NewNatsObjectStore(context.Background(), conn, "artifacts")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.True(t, conn.IsConnected(), "caller keeps ownership of conn")
}
