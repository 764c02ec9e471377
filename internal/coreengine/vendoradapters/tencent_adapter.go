package vendoradapters

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	asr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/asr/v20190614"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

const tencentEndpoint = "asr.tencentcloudapi.com"

// TencentTranscriber uses Tencent Cloud one-sentence recognition.
type TencentTranscriber struct {
	client          *asr.Client
	log             *slog.Logger
	engineModelType string
}

// NewTencentTranscriber creates an authenticated ASR client.
func NewTencentTranscriber(cfg configmanagement.TencentConfig, logger *slog.Logger) (*TencentTranscriber, error) {
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = tencentEndpoint
	return newTencentTranscriber(cfg, logger, cpf)
}

func newTencentTranscriber(cfg configmanagement.TencentConfig, logger *slog.Logger, cpf *profile.ClientProfile) (*TencentTranscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)

	client, err := asr.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tencent ASR client: %w", err)
	}
	return &TencentTranscriber{
		client:          client,
		log:             logger.With("component", "vendor.tencent", "region", cfg.Region),
		engineModelType: cfg.EngineModelType,
	}, nil
}

func (t *TencentTranscriber) Name() string { return configmanagement.VendorTencent }

// TranscribeFile posts the WAV bytes base64-encoded in the request body.
func (t *TencentTranscriber) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	audioBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file '%s': %w", wavPath, err)
	}

	request := asr.NewSentenceRecognitionRequest()
	request.EngSerViceType = common.StringPtr(t.engineModelType)
	request.SourceType = common.Uint64Ptr(1)
	request.VoiceFormat = common.StringPtr("wav")
	request.Data = common.StringPtr(base64.StdEncoding.EncodeToString(audioBytes))
	request.DataLen = common.Int64Ptr(int64(len(audioBytes)))

	startTime := time.Now()
	response, err := t.client.SentenceRecognitionWithContext(ctx, request)
	if err != nil {
		var terr *sdkerrors.TencentCloudSDKError
		if errors.As(err, &terr) {
			return "", fmt.Errorf("Tencent ASR API error: %s (Code: %s, RequestId: %s)", terr.GetMessage(), terr.GetCode(), terr.GetRequestId())
		}
		return "", fmt.Errorf("Tencent ASR API request failed: %w", err)
	}
	t.log.Debug("recognition complete", "latency", time.Since(startTime))

	if response.Response == nil || response.Response.Result == nil {
		return "", fmt.Errorf("Tencent ASR API returned nil response or result")
	}
	return *response.Response.Result, nil
}
