package configmanagement_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoaderDefaultsWithStubVendors(t *testing.T) {
	t.Parallel()

	loader := configmanagement.Loader{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			"TRANSCRIPTION_VENDOR": "stub",
			"IMAGE_VENDOR":         "stub",
			"CAPTION_VENDOR":       "STUB",
			"STORAGE_BACKEND":      "nats",
		}),
	}

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, configmanagement.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, configmanagement.DefaultArchitecturePath, cfg.Server.ArchitecturePath)
	assert.Equal(t, configmanagement.VendorStub, cfg.Vendors.Caption)
	assert.Equal(t, configmanagement.DefaultNATSURL, cfg.Storage.NATSURL)
	assert.Equal(t, configmanagement.DefaultTranscriptionTimeoutSeconds, cfg.Pipeline.TranscriptionTimeoutSeconds)
	assert.False(t, cfg.Pipeline.AutoCaption)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=hivenetes sslmode=disable", cfg.Database.DSN())
}

func TestLoaderOriginalEnvironmentNames(t *testing.T) {
	t.Parallel()

	loader := configmanagement.Loader{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			"OPENAI_API_KEY":        "sk-test",
			"REPLICATE_API_TOKEN":   "r8-test",
			"SPACES_REGION":         "nyc3",
			"SPACES_ENDPOINT":       "https://nyc3.digitaloceanspaces.com",
			"SPACES_KEY":            "key",
			"SPACES_SECRET":         "secret",
			"SPACES_BUCKET":         "images",
			"DB_HOST":               "db.internal",
			"DB_PORT":               "25060",
			"DB_USER":               "doadmin",
			"DB_PASSWORD":           "pw",
			"DB_NAME":               "defaultdb",
			"PIPELINE_AUTO_CAPTION": "true",
			"PIPELINE_AUTO_PERSIST": "1",
		}),
	}

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, configmanagement.VendorOpenAI, cfg.Vendors.Transcription)
	assert.Equal(t, configmanagement.VendorReplicate, cfg.Vendors.ImageGeneration)
	assert.Equal(t, configmanagement.StorageSpaces, cfg.Storage.Backend)
	assert.Equal(t, "nyc3", cfg.Storage.Region)
	assert.Equal(t, "images", cfg.Storage.Bucket)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "25060", cfg.Database.Port)
	assert.True(t, cfg.Pipeline.AutoCaption)
	assert.True(t, cfg.Pipeline.AutoPersist)
}

func TestLoaderRejectsMissingCredentials(t *testing.T) {
	t.Parallel()

	loader := configmanagement.Loader{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			"STORAGE_BACKEND": "nats",
		}),
	}

	_, err := loader.Load()
	require.ErrorIs(t, err, configmanagement.ErrInvalidConfig)
}

func TestLoaderRejectsUnknownVendor(t *testing.T) {
	t.Parallel()

	loader := configmanagement.Loader{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			"TRANSCRIPTION_VENDOR": "carrier-pigeon",
			"IMAGE_VENDOR":         "stub",
			"CAPTION_VENDOR":       "stub",
			"STORAGE_BACKEND":      "nats",
		}),
	}

	_, err := loader.Load()
	require.ErrorIs(t, err, configmanagement.ErrInvalidConfig)
}

func TestLoaderLayersTOMLDotEnvAndEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "pipeline.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[server]
port = "9000"
log_level = "debug"

[pipeline]
auto_caption = true
generation_timeout_seconds = 30

[vendors]
transcription = "stub"
image_generation = "stub"
caption = "stub"

[storage]
backend = "nats"
nats_bucket = "from-toml"
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("NATS_BUCKET=from-dotenv\nSERVER_PORT=9100\n"), 0o600))

	loader := configmanagement.Loader{
		EnvFile: envPath,
		Lookup: mapLookup(map[string]string{
			"PIPELINE_CONFIG_FILE": tomlPath,
			"SERVER_PORT":          "9200",
		}),
	}

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Server.Port, "process environment wins")
	assert.Equal(t, "from-dotenv", cfg.Storage.NATSBucket, ".env beats the TOML file")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.True(t, cfg.Pipeline.AutoCaption)
	assert.Equal(t, 30, cfg.Pipeline.GenerationTimeoutSeconds)
	assert.Equal(t, configmanagement.DefaultCaptionTimeoutSeconds, cfg.Pipeline.CaptionTimeoutSeconds)
}

func TestLoaderReadsYAMLConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9300"
pipeline:
  auto_persist: true
vendors:
  transcription: stub
  image_generation: stub
  caption: stub
storage:
  backend: nats
  nats_bucket: from-yaml
`), 0o600))

	loader := configmanagement.Loader{
		EnvFile: noEnvFile(t),
		Lookup:  mapLookup(map[string]string{"PIPELINE_CONFIG_FILE": path}),
	}

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "9300", cfg.Server.Port)
	assert.True(t, cfg.Pipeline.AutoPersist)
	assert.Equal(t, "from-yaml", cfg.Storage.NATSBucket)
}
