// Package config resolves, parses, validates, and defaults murmur configuration.
package config

// Mode selects which transcription backend handles an utterance first.
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeLocal Mode = "local"
)

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Delivery      DeliveryConfig      `yaml:"delivery"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	History       HistoryConfig       `yaml:"history"`
	Indicator     IndicatorConfig     `yaml:"indicator"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// TranscriptionConfig controls backend selection and cloud request policy.
type TranscriptionConfig struct {
	Mode                 Mode    `yaml:"mode"`
	AutoFallbackCloud    bool    `yaml:"auto_fallback_cloud"`
	Model                string  `yaml:"model"`
	Endpoint             string  `yaml:"endpoint"`
	Language             string  `yaml:"language"`
	MaxRequestsPerMinute int     `yaml:"max_requests_per_minute"`
	LocalCommand         string  `yaml:"local_command"`
	LocalModelPath       string  `yaml:"local_model_path"`
	CostPerMinute        float64 `yaml:"cost_per_minute"`
	// APIKey is the deprecated plaintext fallback; prefer the secret store.
	APIKey string `yaml:"api_key"`
}

// DeliveryConfig controls injection method behavior and fallback policy.
type DeliveryConfig struct {
	ClipboardFallback  bool   `yaml:"clipboard_fallback"`
	RetryCount         int    `yaml:"retry_count"`
	InterCharDelayMS   int    `yaml:"inter_char_delay_ms"`
	RetryDelayMS       int    `yaml:"retry_delay_ms"`
	AttemptTimeoutMS   int    `yaml:"attempt_timeout_ms"`
	LatencyThresholdMS int    `yaml:"latency_threshold_ms"`
	TypeCommand        string `yaml:"type_command"`
	PasteShortcut      string `yaml:"paste_shortcut"`
}

// ClassifierConfig controls foreground-window polling.
type ClassifierConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// HistoryConfig controls the sqlite usage/attempt store.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// IndicatorConfig controls desktop notification cues.
type IndicatorConfig struct {
	Enable bool `yaml:"enable"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Field   string
	Message string
}
