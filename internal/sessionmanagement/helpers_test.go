package sessionmanagement

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/pipeline"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/vendoradapters"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/datastore"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) PutObject(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Close() error { return nil }

type memRepo struct {
	mu      sync.Mutex
	records []datastore.ArtifactRecord
	err     error
}

func (r *memRepo) InsertArtifactRecord(_ context.Context, prompt, filename, description string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.records) + 1)
	r.records = append(r.records, datastore.ArtifactRecord{
		ID:            id,
		Prompt:        prompt,
		ImageFilename: filename,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	})
	return id, nil
}

func (r *memRepo) ListArtifactRecords(_ context.Context, limit int) ([]datastore.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]datastore.ArtifactRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

func (r *memRepo) GetArtifactRecord(_ context.Context, id int64) (*datastore.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.records {
		if r.records[i].ID == id {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, datastore.ErrRecordNotFound
}

type fixture struct {
	manager  *Manager
	store    *memStore
	repo     *memRepo
	recorder *telemetry.Recorder
	router   *gin.Engine
}

func newFixture(t *testing.T, opts pipeline.Options, idleAfter time.Duration) *fixture {
	t.Helper()
	logger := discardLogger()

	stub := vendoradapters.NewStubEngine(logger)
	stub.OutputDir = t.TempDir()

	f := &fixture{
		store:    &memStore{objects: map[string][]byte{}},
		repo:     &memRepo{},
		recorder: telemetry.NewRecorder(logger),
	}
	adapters := pipeline.Adapters{
		Transcription: pipeline.NewTranscriptionAdapter(stub, logger),
		Generation:    pipeline.NewGenerationAdapter(stub),
		Caption:       pipeline.NewCaptionAdapter(stub),
		Store:         pipeline.NewArtifactStoreAdapter(f.store, nil, logger),
		Repository:    f.repo,
	}
	f.manager = NewManager(adapters, opts, idleAfter, logger, f.recorder)

	h := NewHandlers(f.manager)
	r := gin.New()
	r.POST("/sessions", h.CreateSessionHandler)
	r.GET("/sessions/:id", h.GetSessionHandler)
	r.DELETE("/sessions/:id", h.DeleteSessionHandler)
	r.POST("/sessions/:id/audio", h.AudioHandler)
	r.POST("/sessions/:id/image", h.ImageHandler)
	r.POST("/sessions/:id/caption", h.CaptionHandler)
	r.POST("/sessions/:id/save", h.SaveHandler)
	r.GET("/admin/artifacts", ListArtifactsHandler(f.repo))
	r.GET("/admin/artifacts/:id", GetArtifactHandler(f.repo))
	f.router = r
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) post(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodPost, path, nil))
}

// wavUpload builds a multipart body with a short tone in the audio field.
func wavUpload(t *testing.T, path string) *http.Request {
	t.Helper()
	tone := &audio.Sample{SampleRate: 16000, Channels: 1, Data: []float32{0.25, -0.5, 0.5, -0.25, 0.1, -0.1}}

	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	out, err := os.Create(wavPath)
	require.NoError(t, err)
	require.NoError(t, audio.EncodeWAV(out, tone))
	require.NoError(t, out.Close())
	data, err := os.ReadFile(wavPath)
	require.NoError(t, err)

	return multipartRequest(t, path, data)
}

func multipartRequest(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(audioFormField, "clip.wav")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
