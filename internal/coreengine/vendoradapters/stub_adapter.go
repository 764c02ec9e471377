package vendoradapters

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

const defaultStubTranscript = "A lighthouse on a cliff at sunset"

// StubEngine produces deterministic results for every capability without
// calling a network service. Images are small solid-colour JPEG files
// written under OutputDir.
type StubEngine struct {
	log        *slog.Logger
	Transcript string
	OutputDir  string
}

// NewStubEngine returns an engine that generates placeholder outputs.
func NewStubEngine(logger *slog.Logger) *StubEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEngine{
		log:        logger.With("component", "vendor.stub"),
		Transcript: defaultStubTranscript,
		OutputDir:  filepath.Join(os.TempDir(), "pipeline-stub"),
	}
}

func (e *StubEngine) Name() string { return configmanagement.VendorStub }

// TranscribeSamples returns the configured transcript.
func (e *StubEngine) TranscribeSamples(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.log.Debug("stub transcript", "samples", len(samples), "sample_rate", sampleRate)
	return e.Transcript, nil
}

// GenerateImage writes a 64x64 JPEG whose colour depends on the prompt and
// returns its path.
func (e *StubEngine) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create stub output directory: %w", err)
	}

	var sum byte
	for i := 0; i < len(prompt); i++ {
		sum += prompt[i]
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{R: sum, G: 255 - sum, B: 128, A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}

	path := filepath.Join(e.OutputDir, "stub-"+uuid.NewString()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create stub image: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 80}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode stub image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write stub image: %w", err)
	}
	e.log.Debug("stub image", "path", path)
	return path, nil
}

// DescribeImage returns a caption in the raw form hosted captioners use,
// label included.
func (e *StubEngine) DescribeImage(ctx context.Context, imageRef, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := strings.ToLower(strings.TrimSpace(prompt))
	if subject == "" {
		subject = filepath.Base(imageRef)
	}
	return "Caption: a generated picture of " + subject, nil
}
