package config

// DefaultEndpoint is the cloud transcription endpoint used when none is configured.
const DefaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Transcription: TranscriptionConfig{
			Mode:                 ModeCloud,
			AutoFallbackCloud:    true,
			Model:                "whisper-1",
			Endpoint:             DefaultEndpoint,
			Language:             "",
			MaxRequestsPerMinute: 20,
			LocalCommand:         "whisper-cli",
			CostPerMinute:        0.006,
		},
		Delivery: DeliveryConfig{
			ClipboardFallback:  true,
			RetryCount:         2,
			InterCharDelayMS:   1,
			RetryDelayMS:       150,
			AttemptTimeoutMS:   4000,
			LatencyThresholdMS: 2500,
			TypeCommand:        "wtype -",
			PasteShortcut:      "CTRL,V",
		},
		Classifier: ClassifierConfig{
			PollIntervalMS: 500,
		},
		History: HistoryConfig{
			Path:          "", // resolved under XDG_STATE_HOME at load time
			RetentionDays: 90,
		},
		Indicator: IndicatorConfig{Enable: true},
	}
}
