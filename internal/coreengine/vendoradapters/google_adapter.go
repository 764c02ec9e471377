package vendoradapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// GoogleTranscriber uses Google Cloud Speech-to-Text synchronous recognition.
type GoogleTranscriber struct {
	client       *speech.Client
	log          *slog.Logger
	languageCode string
}

// NewGoogleTranscriber creates the speech client. Without an explicit
// credentials path the library falls back to GOOGLE_APPLICATION_CREDENTIALS
// and the metadata server. extra options are applied after the credentials option.
func NewGoogleTranscriber(ctx context.Context, cfg configmanagement.GoogleConfig, logger *slog.Logger, extra ...option.ClientOption) (*GoogleTranscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	opts = append(opts, extra...)
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	return &GoogleTranscriber{
		client:       client,
		log:          logger.With("component", "vendor.google"),
		languageCode: cfg.LanguageCode,
	}, nil
}

func (g *GoogleTranscriber) Name() string { return configmanagement.VendorGoogle }

// TranscribeFile sends the WAV content inline. The sample rate is read by
// the service from the WAV header.
func (g *GoogleTranscriber) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	content, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file '%s': %w", wavPath, err)
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			LanguageCode:               g.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}

	startTime := time.Now()
	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Google Speech API recognition failed: %w", err)
	}
	g.log.Debug("recognition complete", "latency", time.Since(startTime), "results", len(resp.Results))

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript.WriteString(result.Alternatives[0].Transcript)
			transcript.WriteString(" ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}

// Close releases the gRPC connection.
func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}
