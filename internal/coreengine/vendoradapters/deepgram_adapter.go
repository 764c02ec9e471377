package vendoradapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// DeepgramTranscriber posts WAV audio to the Deepgram pre-recorded API.
type DeepgramTranscriber struct {
	HTTPClient *http.Client
	log        *slog.Logger
	apiKey     string
	baseURL    string
	language   string
}

// NewDeepgramTranscriber builds a transcriber against cfg.BaseURL.
func NewDeepgramTranscriber(cfg configmanagement.DeepgramConfig, language string, logger *slog.Logger) *DeepgramTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = configmanagement.DefaultDeepgramBaseURL
	}
	return &DeepgramTranscriber{
		HTTPClient: &http.Client{},
		log:        logger.With("component", "vendor.deepgram"),
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		language:   language,
	}
}

// deepgramResponse keeps only the fields the transcriber reads.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *DeepgramTranscriber) Name() string { return configmanagement.VendorDeepgram }

// TranscribeFile sends the file body and returns the first alternative of
// the first channel.
func (d *DeepgramTranscriber) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	audioBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file '%s': %w", wavPath, err)
	}

	reqURL, err := url.Parse(d.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse Deepgram base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("punctuate", "true")
	if d.language != "" {
		query.Set("language", d.language)
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(audioBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create Deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	httpResp, err := d.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Deepgram: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Deepgram response body: %w", err)
	}
	d.log.Debug("recognition complete", "latency", time.Since(startTime), "status", httpResp.StatusCode)

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Deepgram API request failed with status %s: %s", httpResp.Status, respBody)
	}

	var dgResponse deepgramResponse
	if err := json.Unmarshal(respBody, &dgResponse); err != nil {
		return "", fmt.Errorf("failed to parse Deepgram JSON response: %w", err)
	}
	if len(dgResponse.Results.Channels) == 0 || len(dgResponse.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return dgResponse.Results.Channels[0].Alternatives[0].Transcript, nil
}
