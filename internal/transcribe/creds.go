package transcribe

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Credential sources, most secure first.
const (
	CredentialSourceSecretStore = "secret-store"
	CredentialSourceConfig      = "config"
	CredentialSourceEnv         = "env"
	CredentialSourceNone        = "none"
)

// EnvAPIKey is the deprecated plaintext environment fallback.
const EnvAPIKey = "MURMUR_API_KEY"

// Credentials is a resolved API key plus where it came from.
type Credentials struct {
	APIKey string
	Source string
}

// ResolveCredentials walks the source chain: libsecret secret-tool lookup,
// then the config file, then the deprecated environment variable (with a
// warning). An empty key with SourceNone means no credentials anywhere.
func ResolveCredentials(ctx context.Context, configKey string, logger *slog.Logger) Credentials {
	if key := secretToolLookup(ctx); key != "" {
		return Credentials{APIKey: key, Source: CredentialSourceSecretStore}
	}

	if key := strings.TrimSpace(configKey); key != "" {
		return Credentials{APIKey: key, Source: CredentialSourceConfig}
	}

	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		if logger != nil {
			logger.Warn("using plaintext API key from environment; prefer the secret store",
				"variable", EnvAPIKey)
		}
		return Credentials{APIKey: key, Source: CredentialSourceEnv}
	}

	return Credentials{Source: CredentialSourceNone}
}

// secretToolLookup reads the key from the desktop secret service. Any
// failure (tool missing, no entry, locked keyring) resolves to empty.
func secretToolLookup(ctx context.Context) string {
	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(lookupCtx, "secret-tool", "lookup", "service", "murmur", "key", "api")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
