// Package configmanagement loads the service configuration from a .env file,
// an optional TOML file and the process environment.
package configmanagement

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Vendor names accepted by the adapter registry.
const (
	VendorOpenAI    = "openai"
	VendorReplicate = "replicate"
	VendorGoogle    = "google"
	VendorTencent   = "tencent"
	VendorDeepgram  = "deepgram"
	VendorStub      = "stub"
)

// Storage backends.
const (
	StorageSpaces = "spaces"
	StorageNATS   = "nats"
)

const (
	DefaultServerPort          = "7860"
	DefaultArchitecturePath    = "assets/architecture.png"
	DefaultLogLevel            = "info"
	DefaultTranscriptionVendor = VendorOpenAI
	DefaultImageVendor         = VendorReplicate
	DefaultCaptionVendor       = VendorReplicate
	DefaultStorageBackend      = StorageSpaces

	DefaultOpenAITranscriptionModel = "whisper-1"
	DefaultOpenAIImageModel         = "dall-e-3"
	DefaultOpenAIVisionModel        = "gpt-4o-mini"
	DefaultReplicateImageModel      = "black-forest-labs/flux-schnell"
	DefaultReplicateCaptionModel    = "salesforce/blip:2e1dddc8621f72155f24cf2e0adbde548458d3cab9f00c0139eea840d0ac4746"
	DefaultGoogleLanguage           = "en-US"
	DefaultTencentEngineModelType   = "16k_en"
	DefaultDeepgramBaseURL          = "https://api.deepgram.com/v1/listen"
	DefaultNATSURL                  = "nats://127.0.0.1:4222"
	DefaultNATSBucket               = "artifacts"

	DefaultDBHost    = "localhost"
	DefaultDBPort    = "5432"
	DefaultDBUser    = "postgres"
	DefaultDBName    = "hivenetes"
	DefaultDBSSLMode = "disable"

	DefaultTranscriptionTimeoutSeconds = 60
	DefaultGenerationTimeoutSeconds    = 120
	DefaultCaptionTimeoutSeconds       = 60
	DefaultStorageTimeoutSeconds       = 60
	DefaultPersistenceTimeoutSeconds   = 15
	DefaultSessionIdleMinutes          = 60
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type ServerConfig struct {
	Port             string `toml:"port" yaml:"port"`
	ArchitecturePath string `toml:"architecture_path" yaml:"architecture_path"`
	LogLevel         string `toml:"log_level" yaml:"log_level"`
}

type AdminConfig struct {
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
}

// PipelineConfig controls orchestration. Timeouts are per stage, in seconds.
type PipelineConfig struct {
	AutoCaption                 bool `toml:"auto_caption" yaml:"auto_caption"`
	AutoPersist                 bool `toml:"auto_persist" yaml:"auto_persist"`
	TranscriptionTimeoutSeconds int  `toml:"transcription_timeout_seconds" yaml:"transcription_timeout_seconds"`
	GenerationTimeoutSeconds    int  `toml:"generation_timeout_seconds" yaml:"generation_timeout_seconds"`
	CaptionTimeoutSeconds       int  `toml:"caption_timeout_seconds" yaml:"caption_timeout_seconds"`
	StorageTimeoutSeconds       int  `toml:"storage_timeout_seconds" yaml:"storage_timeout_seconds"`
	PersistenceTimeoutSeconds   int  `toml:"persistence_timeout_seconds" yaml:"persistence_timeout_seconds"`
	SessionIdleMinutes          int  `toml:"session_idle_minutes" yaml:"session_idle_minutes"`
}

type VendorsConfig struct {
	Transcription   string `toml:"transcription" yaml:"transcription"`
	ImageGeneration string `toml:"image_generation" yaml:"image_generation"`
	Caption         string `toml:"caption" yaml:"caption"`
}

type OpenAIConfig struct {
	APIKey             string `toml:"api_key" yaml:"api_key"`
	BaseURL            string `toml:"base_url" yaml:"base_url"`
	TranscriptionModel string `toml:"transcription_model" yaml:"transcription_model"`
	ImageModel         string `toml:"image_model" yaml:"image_model"`
	VisionModel        string `toml:"vision_model" yaml:"vision_model"`
}

type ReplicateConfig struct {
	APIToken     string `toml:"api_token" yaml:"api_token"`
	ImageModel   string `toml:"image_model" yaml:"image_model"`
	CaptionModel string `toml:"caption_model" yaml:"caption_model"`
}

type GoogleConfig struct {
	CredentialsPath string `toml:"credentials_path" yaml:"credentials_path"`
	LanguageCode    string `toml:"language_code" yaml:"language_code"`
}

type TencentConfig struct {
	SecretID        string `toml:"secret_id" yaml:"secret_id"`
	SecretKey       string `toml:"secret_key" yaml:"secret_key"`
	Region          string `toml:"region" yaml:"region"`
	EngineModelType string `toml:"engine_model_type" yaml:"engine_model_type"`
}

type DeepgramConfig struct {
	APIKey  string `toml:"api_key" yaml:"api_key"`
	BaseURL string `toml:"base_url" yaml:"base_url"`
}

// StorageConfig selects and configures the artifact object store. The Spaces
// fields address any S3-compatible endpoint.
type StorageConfig struct {
	Backend    string `toml:"backend" yaml:"backend"`
	Region     string `toml:"region" yaml:"region"`
	Endpoint   string `toml:"endpoint" yaml:"endpoint"`
	AccessKey  string `toml:"access_key" yaml:"access_key"`
	SecretKey  string `toml:"secret_key" yaml:"secret_key"`
	Bucket     string `toml:"bucket" yaml:"bucket"`
	NATSURL    string `toml:"nats_url" yaml:"nats_url"`
	NATSBucket string `toml:"nats_bucket" yaml:"nats_bucket"`
}

type DatabaseConfig struct {
	Host     string `toml:"host" yaml:"host"`
	Port     string `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	Name     string `toml:"name" yaml:"name"`
	SSLMode  string `toml:"sslmode" yaml:"sslmode"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Admin     AdminConfig     `toml:"admin" yaml:"admin"`
	Pipeline  PipelineConfig  `toml:"pipeline" yaml:"pipeline"`
	Vendors   VendorsConfig   `toml:"vendors" yaml:"vendors"`
	OpenAI    OpenAIConfig    `toml:"openai" yaml:"openai"`
	Replicate ReplicateConfig `toml:"replicate" yaml:"replicate"`
	Google    GoogleConfig    `toml:"google" yaml:"google"`
	Tencent   TencentConfig   `toml:"tencent" yaml:"tencent"`
	Deepgram  DeepgramConfig  `toml:"deepgram" yaml:"deepgram"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Database  DatabaseConfig  `toml:"database" yaml:"database"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Timeout converts a seconds field to a duration.
func Timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Validate applies defaults, normalises vendor names and checks that the
// selected vendors have credentials.
func (c *Config) Validate() error {
	setDefault(&c.Server.Port, DefaultServerPort)
	setDefault(&c.Server.ArchitecturePath, DefaultArchitecturePath)
	setDefault(&c.Server.LogLevel, DefaultLogLevel)

	setDefaultInt(&c.Pipeline.TranscriptionTimeoutSeconds, DefaultTranscriptionTimeoutSeconds)
	setDefaultInt(&c.Pipeline.GenerationTimeoutSeconds, DefaultGenerationTimeoutSeconds)
	setDefaultInt(&c.Pipeline.CaptionTimeoutSeconds, DefaultCaptionTimeoutSeconds)
	setDefaultInt(&c.Pipeline.StorageTimeoutSeconds, DefaultStorageTimeoutSeconds)
	setDefaultInt(&c.Pipeline.PersistenceTimeoutSeconds, DefaultPersistenceTimeoutSeconds)
	setDefaultInt(&c.Pipeline.SessionIdleMinutes, DefaultSessionIdleMinutes)

	c.Vendors.Transcription = normalise(c.Vendors.Transcription, DefaultTranscriptionVendor)
	c.Vendors.ImageGeneration = normalise(c.Vendors.ImageGeneration, DefaultImageVendor)
	c.Vendors.Caption = normalise(c.Vendors.Caption, DefaultCaptionVendor)
	c.Storage.Backend = normalise(c.Storage.Backend, DefaultStorageBackend)

	setDefault(&c.OpenAI.TranscriptionModel, DefaultOpenAITranscriptionModel)
	setDefault(&c.OpenAI.ImageModel, DefaultOpenAIImageModel)
	setDefault(&c.OpenAI.VisionModel, DefaultOpenAIVisionModel)
	setDefault(&c.Replicate.ImageModel, DefaultReplicateImageModel)
	setDefault(&c.Replicate.CaptionModel, DefaultReplicateCaptionModel)
	setDefault(&c.Google.LanguageCode, DefaultGoogleLanguage)
	setDefault(&c.Tencent.EngineModelType, DefaultTencentEngineModelType)
	setDefault(&c.Deepgram.BaseURL, DefaultDeepgramBaseURL)
	setDefault(&c.Storage.NATSURL, DefaultNATSURL)
	setDefault(&c.Storage.NATSBucket, DefaultNATSBucket)

	setDefault(&c.Database.Host, DefaultDBHost)
	setDefault(&c.Database.Port, DefaultDBPort)
	setDefault(&c.Database.User, DefaultDBUser)
	setDefault(&c.Database.Name, DefaultDBName)
	setDefault(&c.Database.SSLMode, DefaultDBSSLMode)

	for _, p := range []int{
		c.Pipeline.TranscriptionTimeoutSeconds,
		c.Pipeline.GenerationTimeoutSeconds,
		c.Pipeline.CaptionTimeoutSeconds,
		c.Pipeline.StorageTimeoutSeconds,
		c.Pipeline.PersistenceTimeoutSeconds,
	} {
		if p < 0 {
			return fmt.Errorf("%w: stage timeouts must be positive, got %d", ErrInvalidConfig, p)
		}
	}

	if err := c.validateVendor("transcription", c.Vendors.Transcription,
		VendorOpenAI, VendorGoogle, VendorTencent, VendorDeepgram, VendorStub); err != nil {
		return err
	}
	if err := c.validateVendor("image_generation", c.Vendors.ImageGeneration,
		VendorReplicate, VendorOpenAI, VendorStub); err != nil {
		return err
	}
	if err := c.validateVendor("caption", c.Vendors.Caption,
		VendorReplicate, VendorOpenAI, VendorStub); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case StorageSpaces:
		if c.Storage.Endpoint == "" || c.Storage.AccessKey == "" || c.Storage.SecretKey == "" || c.Storage.Bucket == "" {
			return fmt.Errorf("%w: SPACES_ENDPOINT, SPACES_KEY, SPACES_SECRET and SPACES_BUCKET must be set", ErrInvalidConfig)
		}
	case StorageNATS:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateVendor(stage, vendor string, allowed ...string) error {
	known := false
	for _, a := range allowed {
		if vendor == a {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s vendor %q is not one of %s", ErrInvalidConfig, stage, vendor, strings.Join(allowed, ", "))
	}

	switch vendor {
	case VendorOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for %s", ErrInvalidConfig, stage)
		}
	case VendorReplicate:
		if c.Replicate.APIToken == "" {
			return fmt.Errorf("%w: REPLICATE_API_TOKEN is required for %s", ErrInvalidConfig, stage)
		}
	case VendorTencent:
		if c.Tencent.SecretID == "" || c.Tencent.SecretKey == "" || c.Tencent.Region == "" {
			return fmt.Errorf("%w: TENCENT_SECRET_ID, TENCENT_SECRET_KEY and TENCENT_REGION are required for %s", ErrInvalidConfig, stage)
		}
	case VendorDeepgram:
		if c.Deepgram.APIKey == "" {
			return fmt.Errorf("%w: DEEPGRAM_API_KEY is required for %s", ErrInvalidConfig, stage)
		}
	}
	return nil
}

func setDefault(target *string, value string) {
	if strings.TrimSpace(*target) == "" {
		*target = value
	}
}

func setDefaultInt(target *int, value int) {
	if *target == 0 {
		*target = value
	}
}

func normalise(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
