package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/alkime/docvoice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetenv(t, "ENV", "PORT", "STORAGE_MODE", "SUMMARY_PROVIDER", "SUMMARY_WORDS",
		"TTS_MODEL", "TTS_VOICE", "TTL_MINUTES", "ALLOWED_ORIGINS", "MAX_EXTRACT_BYTES")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, config.StorageStream, cfg.StorageMode)
	assert.Equal(t, config.ProviderOpenAI, cfg.SummaryProvider)
	assert.Equal(t, 200, cfg.SummaryWords)
	assert.Equal(t, "alloy", cfg.TTSVoice)
	assert.Equal(t, "tts-1", cfg.TTSModel)
	assert.Equal(t, 8*time.Minute, cfg.TTL())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(200<<20), cfg.MaxExtractBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetenv(t, "SUMMARY_WORDS", "PORT")
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE_MODE", "tempfile")
	t.Setenv("TTL_MINUTES", "2")
	t.Setenv("TTS_VOICE", "nova")
	t.Setenv("SUMMARY_PROVIDER", "anthropic")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.StorageTempFile, cfg.StorageMode)
	assert.Equal(t, 2*time.Minute, cfg.TTL())
	assert.Equal(t, "nova", cfg.TTSVoice)
	assert.Equal(t, config.ProviderAnthropic, cfg.SummaryProvider)
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/.env", []byte("TTS_VOICE=echo\n"), 0o600))
	t.Chdir(dir)
	unsetenv(t, "TTS_VOICE", "STORAGE_MODE", "SUMMARY_PROVIDER", "SUMMARY_WORDS", "TTL_MINUTES")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "echo", cfg.TTSVoice)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetenv(t, "SUMMARY_PROVIDER", "SUMMARY_WORDS", "TTL_MINUTES")
	t.Setenv("STORAGE_MODE", "floppy")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "unknown STORAGE_MODE")
}

func TestLoadConfig_RejectsNonPositiveExtractLimit(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetenv(t, "STORAGE_MODE", "SUMMARY_PROVIDER", "SUMMARY_WORDS", "TTL_MINUTES")
	t.Setenv("MAX_EXTRACT_BYTES", "0")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "MAX_EXTRACT_BYTES")
}

// unsetenv clears keys for the test and restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			StorageMode:     config.StorageStream,
			SummaryProvider: config.ProviderOpenAI,
			SummaryWords:    200,
			TTLMinutes:      8,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:    "unknown storage mode",
			mutate:  func(c *config.Config) { c.StorageMode = "s3" },
			wantErr: "unknown STORAGE_MODE",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *config.Config) { c.StorageMode = config.StorageGCS },
			wantErr: "GCS_BUCKET",
		},
		{
			name: "gcs with bucket",
			mutate: func(c *config.Config) {
				c.StorageMode = config.StorageGCS
				c.GCSBucket = "audio"
			},
		},
		{
			name:    "vertex without project",
			mutate:  func(c *config.Config) { c.SummaryProvider = config.ProviderVertex },
			wantErr: "GCP_PROJECT",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *config.Config) { c.SummaryProvider = "llama" },
			wantErr: "unknown SUMMARY_PROVIDER",
		},
		{
			name:    "zero words",
			mutate:  func(c *config.Config) { c.SummaryWords = 0 },
			wantErr: "SUMMARY_WORDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuildCSP(t *testing.T) {
	assert.Contains(t, config.BuildCSP("strict"), "object-src 'none'")
	assert.Contains(t, config.BuildCSP("relaxed"), "'unsafe-inline'")
	assert.Contains(t, config.BuildCSP(""), "media-src 'self' blob:")
}
