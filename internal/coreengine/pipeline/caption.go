package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/vendoradapters"
)

const captionLabel = "caption:"

// CaptionResult is a successful caption together with the object key
// derived from the prompt.
type CaptionResult struct {
	Text     string
	Filename string
}

// CaptionAdapter describes a generated image.
type CaptionAdapter struct {
	captioner vendoradapters.Captioner
}

func NewCaptionAdapter(captioner vendoradapters.Captioner) *CaptionAdapter {
	return &CaptionAdapter{captioner: captioner}
}

// Caption fails fast with InputMissing when either input is blank.
func (a *CaptionAdapter) Caption(ctx context.Context, ref ImageReference, prompt string) (CaptionResult, error) {
	if strings.TrimSpace(string(ref)) == "" {
		return CaptionResult{}, inputMissing(StateCaptioning, "no image to caption")
	}
	if strings.TrimSpace(prompt) == "" {
		return CaptionResult{}, inputMissing(StateCaptioning, "no text prompt provided")
	}
	if a.captioner == nil {
		return CaptionResult{}, failed(KindCaptionFailed, StateCaptioning, errors.New("no captioner configured"))
	}

	filename := DeriveFilename(prompt)

	raw, err := a.captioner.DescribeImage(ctx, string(ref), prompt)
	if err != nil {
		return CaptionResult{}, failed(KindCaptionFailed, StateCaptioning, err)
	}
	text := CleanCaption(raw)
	if text == "" {
		return CaptionResult{}, failed(KindCaptionFailed, StateCaptioning, errors.New("captioner returned an empty description"))
	}
	return CaptionResult{Text: text, Filename: filename}, nil
}

// CleanCaption drops a leading "Caption:" label, in any case, and the
// surrounding whitespace.
func CleanCaption(raw string) string {
	text := strings.TrimSpace(raw)
	if len(text) >= len(captionLabel) && strings.EqualFold(text[:len(captionLabel)], captionLabel) {
		text = text[len(captionLabel):]
	}
	return strings.TrimSpace(text)
}
