package transcribe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nvander/murmur/internal/audio"
	"github.com/nvander/murmur/internal/config"
)

// Client fronts both transcription backends. It applies the request budget
// before anything else, routes by configured mode, and feeds the usage
// counters on every paid request.
type Client struct {
	mu       sync.Mutex
	mode     config.Mode
	fallback bool

	limiter  *rate.Limiter
	breaker  *Breaker
	cloud    *CloudClient
	local    *LocalRecognizer
	usage    *UsageRecord
	observer Observer
	logger   *slog.Logger
	language string
}

// NewClient wires a client from configuration. The local recognizer is only
// built when a command is configured; selecting local mode without one is a
// config validation error upstream.
func NewClient(cfg config.TranscriptionConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := NewBreaker(0, 0)
	cloud := NewCloudClient(cfg.Endpoint, cfg.Model, breaker)

	creds := ResolveCredentials(context.Background(), cfg.APIKey, logger)
	if creds.APIKey != "" {
		cloud.SetAPIKey(creds.APIKey)
	}
	logger.Info("transcription credentials resolved", "source", creds.Source)

	var local *LocalRecognizer
	if cfg.LocalCommand != "" {
		recognizer, err := NewLocalRecognizer(cfg.LocalCommand, cfg.LocalModelPath, cfg.Language)
		if err != nil {
			return nil, err
		}
		local = recognizer
	}

	rpm := cfg.MaxRequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm)

	c := &Client{
		mode:     cfg.Mode,
		fallback: cfg.AutoFallbackCloud,
		limiter:  limiter,
		breaker:  breaker,
		cloud:    cloud,
		local:    local,
		usage:    NewUsageRecord(cfg.CostPerMinute),
		observer: NopObserver{},
		logger:   logger,
		language: cfg.Language,
	}
	cloud.onProgress = func(requestID string, percent int) {
		c.mu.Lock()
		obs := c.observer
		c.mu.Unlock()
		obs.TranscriptionProgress(requestID, percent)
	}
	return c, nil
}

// SetObserver installs the lifecycle observer. Pass nil to silence events.
func (c *Client) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	c.mu.Lock()
	c.observer = obs
	c.mu.Unlock()
}

// Transcribe converts one utterance to text. The request budget is charged
// once per call, not per retry attempt.
func (c *Client) Transcribe(ctx context.Context, utt audio.Utterance) (string, error) {
	requestID := uuid.NewString()

	c.mu.Lock()
	obs := c.observer
	mode := c.mode
	fallback := c.fallback
	c.mu.Unlock()

	obs.TranscriptionStarted(requestID)

	reservation := c.limiter.Reserve()
	if !reservation.OK() || reservation.Delay() > 0 {
		delay := reservation.Delay()
		reservation.Cancel()
		err := &RateLimitedError{RetryAfter: delay}
		obs.TranscriptionFailed(requestID, err)
		return "", err
	}

	text, err := c.dispatch(ctx, utt, mode, fallback, requestID)
	if err != nil {
		c.logger.Error("transcription failed", "request_id", requestID, "mode", string(mode), "error", err)
		obs.TranscriptionFailed(requestID, err)
		return "", err
	}

	c.logger.Info("transcription complete", "request_id", requestID, "mode", string(mode), "chars", len(text))
	obs.TranscriptionCompleted(requestID, text)
	return text, nil
}

func (c *Client) dispatch(ctx context.Context, utt audio.Utterance, mode config.Mode, fallback bool, requestID string) (string, error) {
	if mode == config.ModeLocal && c.local != nil {
		text, err := c.local.Transcribe(ctx, utt)
		if err == nil {
			return text, nil
		}
		if !fallback || !IsCloudFallbackEligible(err) {
			return "", err
		}
		c.logger.Warn("local transcription failed; falling back to cloud", "error", err)
	}

	text, err := c.cloud.Transcribe(ctx, utt, c.language, requestID)
	if err != nil {
		return "", err
	}
	c.usage.Add(len(utt.PCM), utt.Format)
	return text, nil
}

// Usage returns a snapshot of accumulated request counters and cost.
func (c *Client) Usage() UsageSnapshot {
	return c.usage.Snapshot()
}

// ResetUsage zeroes the accumulated counters.
func (c *Client) ResetUsage() {
	c.usage.Reset()
}

// CircuitState exposes the breaker position for status and doctor output.
func (c *Client) CircuitState() CircuitState {
	return c.breaker.State()
}

// SetAPIKey updates the cloud credential at runtime.
func (c *Client) SetAPIKey(key string) {
	c.cloud.SetAPIKey(key)
}

// SetEndpoint updates the cloud endpoint at runtime, rejecting non-HTTPS
// values and keeping the previous endpoint.
func (c *Client) SetEndpoint(endpoint string) error {
	if err := c.cloud.SetEndpoint(endpoint); err != nil {
		c.logger.Warn("rejected endpoint update", "endpoint", endpoint, "error", err)
		return err
	}
	return nil
}
