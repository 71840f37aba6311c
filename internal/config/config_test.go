package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
transcription:
  mode: local
  model: whisper-large
  max_requests_per_minute: 5
delivery:
  clipboard_fallback: false
  retry_count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, ModeLocal, loaded.Config.Transcription.Mode)
	require.Equal(t, "whisper-large", loaded.Config.Transcription.Model)
	require.Equal(t, 5, loaded.Config.Transcription.MaxRequestsPerMinute)
	require.False(t, loaded.Config.Delivery.ClipboardFallback)
	require.Equal(t, 1, loaded.Config.Delivery.RetryCount)
	// untouched sections keep defaults
	require.Equal(t, Default().Audio, loaded.Config.Audio)
}

func TestValidateRejectsNonHTTPSEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantWarn bool
	}{
		{name: "https kept", endpoint: "https://stt.example.com/v1/transcribe", wantWarn: false},
		{name: "http rejected", endpoint: "http://stt.example.com/v1/transcribe", wantWarn: true},
		{name: "relative rejected", endpoint: "/v1/transcribe", wantWarn: true},
		{name: "garbage rejected", endpoint: "://not-a-url", wantWarn: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Transcription.Endpoint = tc.endpoint
			warnings := Validate(&cfg)
			if tc.wantWarn {
				require.NotEmpty(t, warnings)
				require.Equal(t, "transcription.endpoint", warnings[0].Field)
				require.Equal(t, DefaultEndpoint, cfg.Transcription.Endpoint)
				return
			}
			require.Empty(t, warnings)
			require.Equal(t, tc.endpoint, cfg.Transcription.Endpoint)
		})
	}
}

func TestValidateCorrectsOutOfRangeValues(t *testing.T) {
	cfg := Default()
	cfg.Transcription.MaxRequestsPerMinute = -3
	cfg.Delivery.RetryCount = -1
	cfg.Classifier.PollIntervalMS = 20

	warnings := Validate(&cfg)
	require.Len(t, warnings, 3)
	require.Equal(t, Default().Transcription.MaxRequestsPerMinute, cfg.Transcription.MaxRequestsPerMinute)
	require.Equal(t, Default().Delivery.RetryCount, cfg.Delivery.RetryCount)
	require.Equal(t, Default().Classifier.PollIntervalMS, cfg.Classifier.PollIntervalMS)
}

func TestResolvePathPrefersExplicitThenXDG(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.yaml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.yaml", path)

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg/murmur/config.yaml", path)
}
