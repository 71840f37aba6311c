package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate normalizes cfg in place and returns non-fatal warnings for every
// field it had to correct. Invalid values fall back to defaults rather than
// failing the load.
func Validate(cfg *Config) []Warning {
	var warnings []Warning
	def := Default()

	warn := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.Transcription.Mode {
	case ModeCloud, ModeLocal:
	case "":
		cfg.Transcription.Mode = def.Transcription.Mode
	default:
		warn("transcription.mode", "unknown mode %q; using %q", cfg.Transcription.Mode, def.Transcription.Mode)
		cfg.Transcription.Mode = def.Transcription.Mode
	}

	if endpoint := strings.TrimSpace(cfg.Transcription.Endpoint); endpoint == "" {
		cfg.Transcription.Endpoint = def.Transcription.Endpoint
	} else if err := CheckEndpoint(endpoint); err != nil {
		warn("transcription.endpoint", "%v; keeping %q", err, def.Transcription.Endpoint)
		cfg.Transcription.Endpoint = def.Transcription.Endpoint
	} else {
		cfg.Transcription.Endpoint = endpoint
	}

	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = def.Transcription.Model
	}
	if cfg.Transcription.MaxRequestsPerMinute <= 0 {
		warn("transcription.max_requests_per_minute", "must be positive; using %d", def.Transcription.MaxRequestsPerMinute)
		cfg.Transcription.MaxRequestsPerMinute = def.Transcription.MaxRequestsPerMinute
	}
	if cfg.Transcription.CostPerMinute < 0 {
		warn("transcription.cost_per_minute", "must not be negative; using %v", def.Transcription.CostPerMinute)
		cfg.Transcription.CostPerMinute = def.Transcription.CostPerMinute
	}
	if cfg.Transcription.Mode == ModeLocal && strings.TrimSpace(cfg.Transcription.LocalCommand) == "" {
		warn("transcription.local_command", "local mode requires a command; using %q", def.Transcription.LocalCommand)
		cfg.Transcription.LocalCommand = def.Transcription.LocalCommand
	}

	if cfg.Delivery.RetryCount < 0 {
		warn("delivery.retry_count", "must not be negative; using %d", def.Delivery.RetryCount)
		cfg.Delivery.RetryCount = def.Delivery.RetryCount
	}
	if cfg.Delivery.InterCharDelayMS < 0 {
		cfg.Delivery.InterCharDelayMS = def.Delivery.InterCharDelayMS
	}
	if cfg.Delivery.RetryDelayMS < 0 {
		cfg.Delivery.RetryDelayMS = def.Delivery.RetryDelayMS
	}
	if cfg.Delivery.AttemptTimeoutMS <= 0 {
		cfg.Delivery.AttemptTimeoutMS = def.Delivery.AttemptTimeoutMS
	}
	if cfg.Delivery.LatencyThresholdMS <= 0 {
		cfg.Delivery.LatencyThresholdMS = def.Delivery.LatencyThresholdMS
	}
	if strings.TrimSpace(cfg.Delivery.TypeCommand) == "" {
		cfg.Delivery.TypeCommand = def.Delivery.TypeCommand
	}
	if strings.TrimSpace(cfg.Delivery.PasteShortcut) == "" {
		cfg.Delivery.PasteShortcut = def.Delivery.PasteShortcut
	}

	if cfg.Classifier.PollIntervalMS < 100 {
		if cfg.Classifier.PollIntervalMS != 0 {
			warn("classifier.poll_interval_ms", "below 100ms floor; using %d", def.Classifier.PollIntervalMS)
		}
		cfg.Classifier.PollIntervalMS = def.Classifier.PollIntervalMS
	}

	if cfg.History.RetentionDays < 0 {
		cfg.History.RetentionDays = def.History.RetentionDays
	}

	return warnings
}

// CheckEndpoint enforces the absolute-HTTPS contract for configurable endpoints.
func CheckEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("endpoint %q is not a valid URL", endpoint)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute URL", endpoint)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("endpoint %q must use https", endpoint)
	}
	return nil
}
