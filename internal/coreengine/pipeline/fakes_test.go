package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSampleEngine struct {
	text  string
	err   error
	calls int
	got   []float32
	rate  int
}

func (f *fakeSampleEngine) Name() string { return "fake-samples" }

func (f *fakeSampleEngine) TranscribeSamples(_ context.Context, samples []float32, sampleRate int) (string, error) {
	f.calls++
	f.got = append([]float32(nil), samples...)
	f.rate = sampleRate
	return f.text, f.err
}

type fakeFileEngine struct {
	text        string
	err         error
	calls       int
	path        string
	existed     bool
	gotChannels int
}

func (f *fakeFileEngine) Name() string { return "fake-file" }

func (f *fakeFileEngine) TranscribeFile(_ context.Context, wavPath string) (string, error) {
	f.calls++
	f.path = wavPath
	file, err := os.Open(wavPath)
	if err == nil {
		f.existed = true
		if s, decErr := audio.DecodeWAV(file); decErr == nil {
			f.gotChannels = s.Channels
		}
		file.Close()
	}
	return f.text, f.err
}

type fakeGenerator struct {
	ref     string
	err     error
	calls   int
	prompts []string
	block   bool
}

func (f *fakeGenerator) Name() string { return "fake-generator" }

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.ref, f.err
}

type fakeCaptioner struct {
	text  string
	err   error
	calls int
}

func (f *fakeCaptioner) Name() string { return "fake-captioner" }

func (f *fakeCaptioner) DescribeImage(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

// memStore is an in-memory objectstore.Store.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    int
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) PutObject(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.err != nil {
		return m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return nil
}

func (m *memStore) Close() error { return nil }

type repoRow struct {
	prompt, filename, description string
}

type fakeRepo struct {
	rows  []repoRow
	calls int
	err   error
}

func (f *fakeRepo) InsertArtifactRecord(_ context.Context, prompt, filename, description string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, repoRow{prompt, filename, description})
	return int64(len(f.rows)), nil
}
