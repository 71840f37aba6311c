// Package doctor runs runtime readiness diagnostics for config, tools,
// audio, and transcription backends.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/nvander/murmur/internal/audio"
	"github.com/nvander/murmur/internal/config"
	"github.com/nvander/murmur/internal/transcribe"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})
	for _, warning := range cfg.Warnings {
		checks = append(checks, Check{
			Name:    "config." + warning.Field,
			Pass:    false,
			Message: warning.Message,
		})
	}

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	checks = append(checks, checkEndpoint(cfg.Config.Transcription.Endpoint))
	checks = append(checks, checkCredentials(ctx, cfg.Config))
	checks = append(checks, checkShellCommand(cfg.Config.Delivery.TypeCommand, "delivery.type_command"))
	checks = append(checks, checkBinary("hyprctl", "paste dispatch requires hyprctl"))

	if cfg.Config.Transcription.Mode == config.ModeLocal || cfg.Config.Transcription.LocalCommand != "" {
		checks = append(checks, checkShellCommand(cfg.Config.Transcription.LocalCommand, "transcription.local_command"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkEndpoint validates the configured transcription endpoint shape.
func checkEndpoint(endpoint string) Check {
	if err := config.CheckEndpoint(endpoint); err != nil {
		return Check{Name: "transcription.endpoint", Pass: false, Message: err.Error()}
	}
	return Check{Name: "transcription.endpoint", Pass: true, Message: endpoint}
}

// checkCredentials reports which credential source resolves, if any.
func checkCredentials(ctx context.Context, cfg config.Config) Check {
	creds := transcribe.ResolveCredentials(ctx, cfg.Transcription.APIKey, nil)
	switch creds.Source {
	case transcribe.CredentialSourceNone:
		if cfg.Transcription.Mode == config.ModeLocal && !cfg.Transcription.AutoFallbackCloud {
			return Check{Name: "credentials", Pass: true, Message: "none configured (local-only mode)"}
		}
		return Check{Name: "credentials", Pass: false, Message: "no API key in secret store, config, or environment"}
	case transcribe.CredentialSourceEnv:
		return Check{Name: "credentials", Pass: true, Message: "resolved from environment (deprecated; prefer the secret store)"}
	default:
		return Check{Name: "credentials", Pass: true, Message: "resolved from " + creds.Source}
	}
}

// checkShellCommand validates that a configured command line parses and its
// binary is runnable.
func checkShellCommand(command, name string) Check {
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil || len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty or unparsable"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
