package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
)

func stereoWithSilentSecondChannel() *audio.Sample {
	return &audio.Sample{
		SampleRate: 16000,
		Channels:   2,
		Data:       []float32{0.5, 0, -0.25, 0, 0.1, 0},
	}
}

func TestTranscribeRejectsMissingAudio(t *testing.T) {
	engine := &fakeSampleEngine{text: "hello"}
	adapter := NewTranscriptionAdapter(engine, discardLogger())

	for name, sample := range map[string]*audio.Sample{
		"nil":    nil,
		"empty":  {SampleRate: 16000, Channels: 1},
		"silent": {SampleRate: 16000, Channels: 1, Data: make([]float32, 320)},
	} {
		t.Run(name, func(t *testing.T) {
			text, err := adapter.Transcribe(context.Background(), sample)
			assert.Empty(t, text)
			assert.Equal(t, KindInputMissing, KindOf(err))
		})
	}
	assert.Zero(t, engine.calls)
}

func TestTranscribeDownmixesAndNormalisesForSampleEngines(t *testing.T) {
	engine := &fakeSampleEngine{text: "  a cat  "}
	adapter := NewTranscriptionAdapter(engine, discardLogger())

	text, err := adapter.Transcribe(context.Background(), stereoWithSilentSecondChannel())
	require.NoError(t, err)
	assert.Equal(t, "a cat", text)
	assert.Equal(t, 16000, engine.rate)
	require.Len(t, engine.got, 3)
	assert.InDelta(t, 1.0, engine.got[0], 1e-6)
	assert.InDelta(t, -0.5, engine.got[1], 1e-6)
	assert.InDelta(t, 0.2, engine.got[2], 1e-6)
}

func TestTranscribeWritesTemporaryMonoWAVForFileEngines(t *testing.T) {
	engine := &fakeFileEngine{text: "a cat"}
	adapter := NewTranscriptionAdapter(engine, discardLogger())

	text, err := adapter.Transcribe(context.Background(), stereoWithSilentSecondChannel())
	require.NoError(t, err)
	assert.Equal(t, "a cat", text)
	assert.True(t, engine.existed)
	assert.Equal(t, 1, engine.gotChannels)

	_, statErr := os.Stat(engine.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "temporary WAV must be removed")
}

func TestTranscribeRemovesTemporaryWAVOnEngineError(t *testing.T) {
	engine := &fakeFileEngine{err: errors.New("503 from service")}
	adapter := NewTranscriptionAdapter(engine, discardLogger())

	_, err := adapter.Transcribe(context.Background(), stereoWithSilentSecondChannel())
	assert.Equal(t, KindTranscriptionFailed, KindOf(err))

	_, statErr := os.Stat(engine.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestTranscribeEmptyTranscriptFails(t *testing.T) {
	adapter := NewTranscriptionAdapter(&fakeSampleEngine{text: ""}, discardLogger())
	_, err := adapter.Transcribe(context.Background(), stereoWithSilentSecondChannel())

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindTranscriptionFailed, pe.Kind)
	assert.Equal(t, StateTranscribing, pe.Stage)
}

func TestGenerateBlankPromptNeverCallsGenerator(t *testing.T) {
	gen := &fakeGenerator{ref: "https://example.com/x.webp"}
	adapter := NewGenerationAdapter(gen)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		ref, err := adapter.Generate(context.Background(), prompt)
		assert.Empty(t, ref)
		assert.Equal(t, KindInputMissing, KindOf(err))
	}
	assert.Zero(t, gen.calls)
}

func TestGenerateFailures(t *testing.T) {
	adapter := NewGenerationAdapter(&fakeGenerator{err: errors.New("rate limited")})
	_, err := adapter.Generate(context.Background(), "A cat")
	assert.Equal(t, KindGenerationFailed, KindOf(err))

	adapter = NewGenerationAdapter(&fakeGenerator{ref: ""})
	_, err = adapter.Generate(context.Background(), "A cat")
	assert.Equal(t, KindGenerationFailed, KindOf(err))
}

func TestGenerateTrimsPrompt(t *testing.T) {
	gen := &fakeGenerator{ref: "https://example.com/x.webp"}
	ref, err := NewGenerationAdapter(gen).Generate(context.Background(), "  A cat. ")
	require.NoError(t, err)
	assert.Equal(t, ImageReference("https://example.com/x.webp"), ref)
	assert.True(t, ref.IsRemote())
	assert.Equal(t, []string{"A cat."}, gen.prompts)
}

func TestCaptionBlankPromptFailsFast(t *testing.T) {
	captioner := &fakeCaptioner{text: "a cat"}
	adapter := NewCaptionAdapter(captioner)

	_, err := adapter.Caption(context.Background(), "https://example.com/cat.webp", "")
	assert.Equal(t, KindInputMissing, KindOf(err))

	_, err = adapter.Caption(context.Background(), "", "A cat")
	assert.Equal(t, KindInputMissing, KindOf(err))
	assert.Zero(t, captioner.calls)
}

func TestCaptionCleansLabelAndDerivesFilename(t *testing.T) {
	adapter := NewCaptionAdapter(&fakeCaptioner{text: "Caption:  a cat sitting on a rug \n"})

	result, err := adapter.Caption(context.Background(), "https://example.com/cat.webp", "A cat. ")
	require.NoError(t, err)
	assert.Equal(t, CaptionResult{Text: "a cat sitting on a rug", Filename: "A_cat.jpg"}, result)
}

func TestCaptionFailures(t *testing.T) {
	_, err := NewCaptionAdapter(&fakeCaptioner{err: errors.New("timeout")}).
		Caption(context.Background(), "https://example.com/cat.webp", "A cat")
	assert.Equal(t, KindCaptionFailed, KindOf(err))

	_, err = NewCaptionAdapter(&fakeCaptioner{text: "Caption:   "}).
		Caption(context.Background(), "https://example.com/cat.webp", "A cat")
	assert.Equal(t, KindCaptionFailed, KindOf(err))
}

func TestCleanCaption(t *testing.T) {
	tests := map[string]string{
		"Caption: a dog":      "a dog",
		"caption:a dog":       "a dog",
		"  a dog  ":           "a dog",
		"a dog with Caption:": "a dog with Caption:",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanCaption(in), in)
	}
}

func TestUploadRemoteImage(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		io.WriteString(w, "webp-bytes")
	}))
	defer srv.Close()

	store := newMemStore()
	adapter := NewArtifactStoreAdapter(store, srv.Client(), discardLogger())

	result, err := adapter.Upload(context.Background(), ImageReference(srv.URL+"/out-0.webp"), "A_cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, UploadResult{Key: "A_cat.jpg", Size: 10, ContentType: "image/webp"}, result)
	assert.Equal(t, []byte("webp-bytes"), store.objects["A_cat.jpg"])

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "downloaded image must be removed")
}

func TestUploadRemoteImageDownloadFailure(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := newMemStore()
	_, err := NewArtifactStoreAdapter(store, srv.Client(), discardLogger()).
		Upload(context.Background(), ImageReference(srv.URL+"/gone.webp"), "A_cat.jpg")
	assert.Equal(t, KindStorageFailed, KindOf(err))
	assert.Zero(t, store.puts)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadRemoteImageStoreFailureStillCleansUp(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "bytes")
	}))
	defer srv.Close()

	store := newMemStore()
	store.err = errors.New("access denied")
	_, err := NewArtifactStoreAdapter(store, srv.Client(), discardLogger()).
		Upload(context.Background(), ImageReference(srv.URL+"/x.webp"), "x.jpg")
	assert.Equal(t, KindStorageFailed, KindOf(err))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadLocalImageAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.jpg")
	second := filepath.Join(dir, "second.jpg")
	require.NoError(t, os.WriteFile(first, []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("second"), 0o600))

	store := newMemStore()
	adapter := NewArtifactStoreAdapter(store, nil, discardLogger())

	_, err := adapter.Upload(context.Background(), ImageReference(first), "A_cat.jpg")
	require.NoError(t, err)
	result, err := adapter.Upload(context.Background(), ImageReference(second), "A_cat.jpg")
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, 2, store.puts)
	assert.Len(t, store.objects, 1)
	assert.Equal(t, []byte("second"), store.objects["A_cat.jpg"])
}

func TestUploadRejectsMissingInputs(t *testing.T) {
	store := newMemStore()
	adapter := NewArtifactStoreAdapter(store, nil, discardLogger())

	_, err := adapter.Upload(context.Background(), "", "A_cat.jpg")
	assert.Equal(t, KindInputMissing, KindOf(err))
	_, err = adapter.Upload(context.Background(), "/tmp/x.jpg", " ")
	assert.Equal(t, KindInputMissing, KindOf(err))
	assert.Zero(t, store.puts)
}
