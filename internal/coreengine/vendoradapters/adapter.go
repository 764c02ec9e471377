// Package vendoradapters wraps the external speech-to-text, text-to-image
// and image-captioning services behind small capability interfaces.
package vendoradapters

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Transcriber is implemented by every speech-to-text engine. Concrete
// engines also implement FileTranscriber or SampleTranscriber.
type Transcriber interface {
	Name() string
}

// FileTranscriber transcribes a mono 16-bit PCM WAV file. Hosted services
// implement this.
type FileTranscriber interface {
	Transcriber
	TranscribeFile(ctx context.Context, wavPath string) (string, error)
}

// SampleTranscriber transcribes a peak-normalised mono buffer. Local models
// implement this.
type SampleTranscriber interface {
	Transcriber
	TranscribeSamples(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// ImageGenerator turns a prompt into an image reference: a remote URL or a
// local file path.
type ImageGenerator interface {
	Name() string
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Captioner describes the image behind imageRef. prompt is context some
// engines use and others ignore.
type Captioner interface {
	Name() string
	DescribeImage(ctx context.Context, imageRef, prompt string) (string, error)
}

// IsRemoteRef reports whether ref is an http(s) URL.
func IsRemoteRef(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// imageInputURL returns ref unchanged when it is already addressable over
// the network, and a base64 data URL for local files.
func imageInputURL(ref string) (string, error) {
	if IsRemoteRef(ref) || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("failed to read local image '%s': %w", ref, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
