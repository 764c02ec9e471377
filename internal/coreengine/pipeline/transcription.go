package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/vendoradapters"
)

// TranscriptionAdapter turns a captured sample into text.
type TranscriptionAdapter struct {
	engine vendoradapters.Transcriber
	log    *slog.Logger
}

// NewTranscriptionAdapter wraps engine, which must implement
// vendoradapters.SampleTranscriber or vendoradapters.FileTranscriber.
func NewTranscriptionAdapter(engine vendoradapters.Transcriber, logger *slog.Logger) *TranscriptionAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptionAdapter{engine: engine, log: logger.With("component", "pipeline.transcription")}
}

// Transcribe downmixes sample to mono and hands it to the engine: sample
// engines get the peak-normalised buffer, file engines get a temporary WAV
// that is removed before Transcribe returns.
func (a *TranscriptionAdapter) Transcribe(ctx context.Context, sample *audio.Sample) (string, error) {
	if err := sample.Validate(); err != nil {
		return "", inputMissing(StateTranscribing, "no usable audio: %w", err)
	}
	if sample.IsSilent() {
		return "", inputMissing(StateTranscribing, "audio sample is silent")
	}

	mono := sample.Downmix()

	var (
		text string
		err  error
	)
	switch engine := a.engine.(type) {
	case vendoradapters.SampleTranscriber:
		normalized := mono.Normalize()
		text, err = engine.TranscribeSamples(ctx, normalized.Data, normalized.SampleRate)
	case vendoradapters.FileTranscriber:
		text, err = a.transcribeFile(ctx, engine, mono)
	case nil:
		err = errors.New("no transcription engine configured")
	default:
		err = fmt.Errorf("transcription engine %q accepts neither samples nor files", engine.Name())
	}
	if err != nil {
		return "", failed(KindTranscriptionFailed, StateTranscribing, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", failed(KindTranscriptionFailed, StateTranscribing, errors.New("engine returned an empty transcript"))
	}
	return text, nil
}

func (a *TranscriptionAdapter) transcribeFile(ctx context.Context, engine vendoradapters.FileTranscriber, mono *audio.Sample) (string, error) {
	path, err := audio.WriteTempWAV(mono)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			a.log.Warn("failed to remove temporary audio file", "path", path, "error", rmErr)
		}
	}()
	return engine.TranscribeFile(ctx, path)
}
