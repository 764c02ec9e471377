package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/vendoradapters"
)

// ImageReference locates a generated image: a remote URL or a local path.
type ImageReference string

// IsRemote reports whether the reference is an http(s) URL.
func (r ImageReference) IsRemote() bool {
	return vendoradapters.IsRemoteRef(string(r))
}

// GenerationAdapter turns a prompt into an image reference.
type GenerationAdapter struct {
	generator vendoradapters.ImageGenerator
}

func NewGenerationAdapter(generator vendoradapters.ImageGenerator) *GenerationAdapter {
	return &GenerationAdapter{generator: generator}
}

// Generate rejects blank prompts before any network call.
func (a *GenerationAdapter) Generate(ctx context.Context, prompt string) (ImageReference, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", inputMissing(StateGeneratingImage, "no text prompt provided")
	}
	if a.generator == nil {
		return "", failed(KindGenerationFailed, StateGeneratingImage, errors.New("no image generator configured"))
	}

	ref, err := a.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return "", failed(KindGenerationFailed, StateGeneratingImage, err)
	}
	if strings.TrimSpace(ref) == "" {
		return "", failed(KindGenerationFailed, StateGeneratingImage, errors.New("generator returned no image"))
	}
	return ImageReference(ref), nil
}
