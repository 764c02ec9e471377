package vendoradapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

const captionInstruction = "Describe this image in one or two sentences."

// OpenAIAdapter serves all three capabilities: Whisper transcription,
// image generation and vision captions.
type OpenAIAdapter struct {
	client             *openai.Client
	log                *slog.Logger
	transcriptionModel string
	imageModel         string
	visionModel        string
}

// NewOpenAIAdapter builds a client from cfg. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAIAdapter(cfg configmanagement.OpenAIConfig, logger *slog.Logger) *OpenAIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAIAdapter{
		client:             openai.NewClientWithConfig(clientCfg),
		log:                logger.With("component", "vendor.openai"),
		transcriptionModel: cfg.TranscriptionModel,
		imageModel:         cfg.ImageModel,
		visionModel:        cfg.VisionModel,
	}
}

func (a *OpenAIAdapter) Name() string { return configmanagement.VendorOpenAI }

// TranscribeFile uploads the WAV file to the transcription endpoint.
func (a *OpenAIAdapter) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.transcriptionModel,
		FilePath: wavPath,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription failed: %w", err)
	}
	a.log.Debug("transcription complete", "model", a.transcriptionModel, "chars", len(resp.Text))
	return resp.Text, nil
}

// GenerateImage requests a single square image and returns its URL.
func (a *OpenAIAdapter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          a.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("openai image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("openai image generation returned no image")
	}
	return resp.Data[0].URL, nil
}

// DescribeImage asks the vision model for a short description. Local
// images are sent inline as data URLs.
func (a *OpenAIAdapter) DescribeImage(ctx context.Context, imageRef, prompt string) (string, error) {
	imageURL, err := imageInputURL(imageRef)
	if err != nil {
		return "", err
	}

	instruction := captionInstruction
	if prompt != "" {
		instruction = fmt.Sprintf("%s It was generated from the prompt: %q.", captionInstruction, prompt)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai vision request returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
