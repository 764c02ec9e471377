package configmanagement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile = ".env"
	configFileKey  = "PIPELINE_CONFIG_FILE"
)

// Loader assembles a Config. Precedence, lowest first: TOML or YAML file
// named by PIPELINE_CONFIG_FILE, values from the .env file, process environment.
// Tests override Lookup and EnvFile to stay hermetic.
type Loader struct {
	Lookup  func(string) (string, bool)
	EnvFile string
}

// Load reads, merges and validates the configuration.
func (l Loader) Load() (*Config, error) {
	lookup, err := l.lookupFunc()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if path, ok := lookup(configFileKey); ok && strings.TrimSpace(path) != "" {
		if err := applyFile(strings.TrimSpace(path), &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(lookup, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// lookupFunc layers the process environment over the .env file, mirroring
// godotenv.Load which never overrides variables that are already set.
func (l Loader) lookupFunc() (func(string) (string, bool), error) {
	base := l.Lookup
	if base == nil {
		base = os.LookupEnv
	}

	envFile := l.EnvFile
	if envFile == "" {
		envFile = defaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// applyFile decodes path by extension. Anything that is not .yaml or .yml
// is read as TOML.
func applyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(lookup func(string) (string, bool), cfg *Config) {
	overrideString(lookup, "SERVER_PORT", &cfg.Server.Port)
	overrideString(lookup, "ARCH_DIAGRAM_PATH", &cfg.Server.ArchitecturePath)
	overrideString(lookup, "LOG_LEVEL", &cfg.Server.LogLevel)

	overrideString(lookup, "ADMIN_USERNAME", &cfg.Admin.Username)
	overrideString(lookup, "ADMIN_PASSWORD", &cfg.Admin.Password)

	overrideBool(lookup, "PIPELINE_AUTO_CAPTION", &cfg.Pipeline.AutoCaption)
	overrideBool(lookup, "PIPELINE_AUTO_PERSIST", &cfg.Pipeline.AutoPersist)
	overrideInt(lookup, "PIPELINE_TRANSCRIPTION_TIMEOUT_SECONDS", &cfg.Pipeline.TranscriptionTimeoutSeconds)
	overrideInt(lookup, "PIPELINE_GENERATION_TIMEOUT_SECONDS", &cfg.Pipeline.GenerationTimeoutSeconds)
	overrideInt(lookup, "PIPELINE_CAPTION_TIMEOUT_SECONDS", &cfg.Pipeline.CaptionTimeoutSeconds)
	overrideInt(lookup, "PIPELINE_STORAGE_TIMEOUT_SECONDS", &cfg.Pipeline.StorageTimeoutSeconds)
	overrideInt(lookup, "PIPELINE_PERSISTENCE_TIMEOUT_SECONDS", &cfg.Pipeline.PersistenceTimeoutSeconds)
	overrideInt(lookup, "PIPELINE_SESSION_IDLE_MINUTES", &cfg.Pipeline.SessionIdleMinutes)

	overrideString(lookup, "TRANSCRIPTION_VENDOR", &cfg.Vendors.Transcription)
	overrideString(lookup, "IMAGE_VENDOR", &cfg.Vendors.ImageGeneration)
	overrideString(lookup, "CAPTION_VENDOR", &cfg.Vendors.Caption)

	overrideString(lookup, "OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	overrideString(lookup, "OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	overrideString(lookup, "OPENAI_TRANSCRIPTION_MODEL", &cfg.OpenAI.TranscriptionModel)
	overrideString(lookup, "OPENAI_IMAGE_MODEL", &cfg.OpenAI.ImageModel)
	overrideString(lookup, "OPENAI_VISION_MODEL", &cfg.OpenAI.VisionModel)

	overrideString(lookup, "REPLICATE_API_TOKEN", &cfg.Replicate.APIToken)
	overrideString(lookup, "REPLICATE_IMAGE_MODEL", &cfg.Replicate.ImageModel)
	overrideString(lookup, "REPLICATE_CAPTION_MODEL", &cfg.Replicate.CaptionModel)

	overrideString(lookup, "GOOGLE_APPLICATION_CREDENTIALS", &cfg.Google.CredentialsPath)
	overrideString(lookup, "GOOGLE_SPEECH_LANGUAGE", &cfg.Google.LanguageCode)

	overrideString(lookup, "TENCENT_SECRET_ID", &cfg.Tencent.SecretID)
	overrideString(lookup, "TENCENT_SECRET_KEY", &cfg.Tencent.SecretKey)
	overrideString(lookup, "TENCENT_REGION", &cfg.Tencent.Region)
	overrideString(lookup, "TENCENT_ENGINE_MODEL_TYPE", &cfg.Tencent.EngineModelType)

	overrideString(lookup, "DEEPGRAM_API_KEY", &cfg.Deepgram.APIKey)
	overrideString(lookup, "DEEPGRAM_BASE_URL", &cfg.Deepgram.BaseURL)

	overrideString(lookup, "STORAGE_BACKEND", &cfg.Storage.Backend)
	overrideString(lookup, "SPACES_REGION", &cfg.Storage.Region)
	overrideString(lookup, "SPACES_ENDPOINT", &cfg.Storage.Endpoint)
	overrideString(lookup, "SPACES_KEY", &cfg.Storage.AccessKey)
	overrideString(lookup, "SPACES_SECRET", &cfg.Storage.SecretKey)
	overrideString(lookup, "SPACES_BUCKET", &cfg.Storage.Bucket)
	overrideString(lookup, "NATS_URL", &cfg.Storage.NATSURL)
	overrideString(lookup, "NATS_BUCKET", &cfg.Storage.NATSBucket)

	overrideString(lookup, "DB_HOST", &cfg.Database.Host)
	overrideString(lookup, "DB_PORT", &cfg.Database.Port)
	overrideString(lookup, "DB_USER", &cfg.Database.User)
	overrideString(lookup, "DB_PASSWORD", &cfg.Database.Password)
	overrideString(lookup, "DB_NAME", &cfg.Database.Name)
	overrideString(lookup, "DB_SSLMODE", &cfg.Database.SSLMode)
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		*target = b
	}
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		*target = n
	}
}
