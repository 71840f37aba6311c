package doctor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvander/murmur/internal/config"
	"github.com/nvander/murmur/internal/transcribe"
)

func TestReportOK(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "a", Pass: true},
		{Name: "b", Pass: true},
	}}
	assert.True(t, r.OK())

	r.Checks = append(r.Checks, Check{Name: "c", Pass: false})
	assert.False(t, r.OK())
}

func TestReportString(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "config", Pass: true, Message: "loaded"},
		{Name: "hyprctl", Pass: false, Message: "binary not found in PATH: hyprctl"},
	}}
	out := r.String()
	assert.Contains(t, out, "[OK] config: loaded")
	assert.Contains(t, out, "[FAIL] hyprctl:")
}

func TestCheckEndpoint(t *testing.T) {
	check := checkEndpoint("https://api.openai.com/v1/audio/transcriptions")
	assert.True(t, check.Pass)

	check = checkEndpoint("http://api.openai.com/v1")
	assert.False(t, check.Pass)
	assert.Contains(t, check.Message, "https")

	check = checkEndpoint("/v1/audio")
	assert.False(t, check.Pass)
}

func TestCheckShellCommand(t *testing.T) {
	check := checkShellCommand("sh -c true", "delivery.type_command")
	assert.True(t, check.Pass, check.Message)

	check = checkShellCommand("", "delivery.type_command")
	assert.False(t, check.Pass)

	check = checkShellCommand(`sh "unterminated`, "delivery.type_command")
	assert.False(t, check.Pass)

	check = checkShellCommand("definitely-not-a-real-binary-9f2c", "delivery.type_command")
	assert.False(t, check.Pass)
}

func TestCheckBinary(t *testing.T) {
	check := checkBinary("sh", "shell is available")
	require.True(t, check.Pass)
	assert.Contains(t, check.Message, "sh")

	check = checkBinary("definitely-not-a-real-binary-9f2c", "")
	assert.False(t, check.Pass)
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	check := checkEnv("XDG_SESSION_TYPE", func(v string) bool { return v == "wayland" }, "ok", "bad")
	assert.True(t, check.Pass)

	t.Setenv("XDG_SESSION_TYPE", "x11")
	check = checkEnv("XDG_SESSION_TYPE", func(v string) bool { return v == "wayland" }, "ok", "bad")
	assert.False(t, check.Pass)
	assert.Equal(t, "bad", check.Message)
}

func TestCheckCredentialsFromConfig(t *testing.T) {
	t.Setenv("PATH", "")
	t.Setenv(transcribe.EnvAPIKey, "")

	cfg := config.Default()
	cfg.Transcription.APIKey = "sk-test"
	check := checkCredentials(context.Background(), cfg)
	assert.True(t, check.Pass)
	assert.Contains(t, check.Message, transcribe.CredentialSourceConfig)
}

func TestCheckCredentialsMissing(t *testing.T) {
	t.Setenv("PATH", "")
	t.Setenv(transcribe.EnvAPIKey, "")

	cfg := config.Default()
	cfg.Transcription.APIKey = ""
	check := checkCredentials(context.Background(), cfg)
	assert.False(t, check.Pass)
}

func TestCheckCredentialsLocalOnlyMode(t *testing.T) {
	t.Setenv("PATH", "")
	t.Setenv(transcribe.EnvAPIKey, "")

	cfg := config.Default()
	cfg.Transcription.APIKey = ""
	cfg.Transcription.Mode = config.ModeLocal
	cfg.Transcription.AutoFallbackCloud = false
	check := checkCredentials(context.Background(), cfg)
	assert.True(t, check.Pass)
	assert.Contains(t, check.Message, "local-only")
}

func TestCheckCredentialsDeprecatedEnv(t *testing.T) {
	t.Setenv("PATH", "")
	t.Setenv(transcribe.EnvAPIKey, "sk-env")

	cfg := config.Default()
	cfg.Transcription.APIKey = ""
	check := checkCredentials(context.Background(), cfg)
	assert.True(t, check.Pass)
	assert.Contains(t, check.Message, "deprecated")
}

func TestRunReportsConfigWarnings(t *testing.T) {
	loaded := config.Loaded{
		Path:   "/tmp/murmur.yaml",
		Config: config.Default(),
		Warnings: []config.Warning{
			{Field: "transcription.endpoint", Message: "endpoint must use https"},
		},
	}
	report := Run(context.Background(), loaded)

	var found bool
	for _, check := range report.Checks {
		if check.Name == "config.transcription.endpoint" {
			found = true
			assert.False(t, check.Pass)
		}
	}
	assert.True(t, found)
}
