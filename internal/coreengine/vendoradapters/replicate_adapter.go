package vendoradapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/replicate/replicate-go"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// fluxInput is the fixed generation configuration: one square webp image.
var fluxInput = replicate.PredictionInput{
	"go_fast":             true,
	"megapixels":          "1",
	"num_outputs":         1,
	"aspect_ratio":        "1:1",
	"output_format":       "webp",
	"output_quality":      80,
	"num_inference_steps": 4,
}

const defaultReplicatePollInterval = time.Second

// ReplicateAdapter runs the Flux image model and the BLIP caption model.
// Model identifiers are "owner/name" for official models, which always run
// their latest version, or "owner/name:version".
type ReplicateAdapter struct {
	client       *replicate.Client
	log          *slog.Logger
	imageModel   string
	captionModel string
	pollInterval time.Duration
}

// NewReplicateAdapter creates an authenticated client.
func NewReplicateAdapter(cfg configmanagement.ReplicateConfig, logger *slog.Logger, opts ...replicate.ClientOption) (*ReplicateAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]replicate.ClientOption{replicate.WithToken(cfg.APIToken)}, opts...)
	client, err := replicate.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Replicate client: %w", err)
	}
	return &ReplicateAdapter{
		client:       client,
		log:          logger.With("component", "vendor.replicate"),
		imageModel:   cfg.ImageModel,
		captionModel: cfg.CaptionModel,
		pollInterval: defaultReplicatePollInterval,
	}, nil
}

func (a *ReplicateAdapter) Name() string { return configmanagement.VendorReplicate }

// GenerateImage runs the image model and returns the first output URL.
func (a *ReplicateAdapter) GenerateImage(ctx context.Context, prompt string) (string, error) {
	input := replicate.PredictionInput{"prompt": prompt}
	for k, v := range fluxInput {
		input[k] = v
	}

	output, err := a.predict(ctx, a.imageModel, input)
	if err != nil {
		return "", fmt.Errorf("replicate image generation failed: %w", err)
	}
	url, err := firstOutput(output)
	if err != nil {
		return "", fmt.Errorf("replicate image generation: %w", err)
	}
	a.log.Debug("image generated", "model", a.imageModel)
	return url, nil
}

// DescribeImage runs the captioning model. BLIP ignores the prompt.
func (a *ReplicateAdapter) DescribeImage(ctx context.Context, imageRef, _ string) (string, error) {
	image, err := imageInputURL(imageRef)
	if err != nil {
		return "", err
	}
	output, err := a.predict(ctx, a.captionModel, replicate.PredictionInput{
		"task":  "image_captioning",
		"image": image,
	})
	if err != nil {
		return "", fmt.Errorf("replicate caption failed: %w", err)
	}
	text, err := firstOutput(output)
	if err != nil {
		return "", fmt.Errorf("replicate caption: %w", err)
	}
	return text, nil
}

// predict creates a prediction for model and waits for it to finish.
func (a *ReplicateAdapter) predict(ctx context.Context, model string, input replicate.PredictionInput) (replicate.PredictionOutput, error) {
	id, err := replicate.ParseIdentifier(model)
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", model, err)
	}

	var prediction *replicate.Prediction
	if id.Version == nil {
		prediction, err = a.client.CreatePredictionWithModel(ctx, id.Owner, id.Name, input, nil, false)
	} else {
		prediction, err = a.client.CreatePrediction(ctx, *id.Version, input, nil, false)
	}
	if err != nil {
		return nil, err
	}

	if !prediction.Status.Terminated() {
		if err := a.client.Wait(ctx, prediction, replicate.WithPollingInterval(a.pollInterval)); err != nil {
			return nil, err
		}
	}

	switch prediction.Status {
	case replicate.Succeeded:
		a.log.Debug("prediction finished", "model", model, "prediction_id", prediction.ID)
		return prediction.Output, nil
	case replicate.Failed:
		return nil, fmt.Errorf("prediction %s failed: %v", prediction.ID, prediction.Error)
	default:
		return nil, fmt.Errorf("prediction %s ended with status %s", prediction.ID, prediction.Status)
	}
}

// firstOutput extracts a string from a prediction output, which is either
// a bare string or a list whose first element is one.
func firstOutput(output replicate.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case string:
		return v, nil
	case []string:
		if len(v) > 0 {
			return v[0], nil
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
			return "", fmt.Errorf("unexpected output element type %T", v[0])
		}
	case nil:
		return "", fmt.Errorf("empty output")
	default:
		return "", fmt.Errorf("unexpected output type %T", output)
	}
	return "", fmt.Errorf("empty output")
}
