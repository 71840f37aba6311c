package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nvander/murmur/internal/audio"
	"github.com/nvander/murmur/internal/config"
)

const (
	defaultMaxAttempts    = 5
	defaultRequestTimeout = 30 * time.Second
)

// gate is the admission control wrapped around every cloud attempt. The
// circuit breaker satisfies it.
type gate interface {
	Allow() error
	RecordSuccess()
	RecordFailure()
}

// nopGate admits everything; used when no breaker is wired (tests).
type nopGate struct{}

func (nopGate) Allow() error    { return nil }
func (nopGate) RecordSuccess()  {}
func (nopGate) RecordFailure()  {}

// CloudClient posts WAV utterances to an OpenAI-style transcription endpoint.
// The multipart payload is rebuilt for every attempt; a consumed body is
// never reused.
type CloudClient struct {
	mu       sync.Mutex
	endpoint string
	apiKey   string

	model       string
	httpClient  *http.Client
	gate        gate
	maxAttempts int
	newBackOff  func() backoff.BackOff
	onProgress  func(requestID string, percent int)
}

// NewCloudClient builds a client for the given endpoint/model. The endpoint
// must already have passed config validation.
func NewCloudClient(endpoint, model string, g gate) *CloudClient {
	if g == nil {
		g = nopGate{}
	}
	return &CloudClient{
		endpoint:    endpoint,
		model:       model,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		gate:        g,
		maxAttempts: defaultMaxAttempts,
		newBackOff:  newTranscribeBackOff,
	}
}

// SetAPIKey installs the key used for the Authorization header on all
// subsequent requests.
func (c *CloudClient) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

// SetEndpoint swaps the target endpoint, rejecting anything that is not an
// absolute HTTPS URL and keeping the previous endpoint in that case.
func (c *CloudClient) SetEndpoint(endpoint string) error {
	if err := config.CheckEndpoint(endpoint); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
	return nil
}

// Endpoint returns the currently configured endpoint.
func (c *CloudClient) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// httpStatusError marks a retryable HTTP status inside the retry loop.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.status)
}

// retryableStatus reports whether a status code qualifies for retry.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Transcribe uploads the utterance and returns the recognized text. Network
// errors, timeouts, and 429/5xx responses are retried with exponential
// backoff up to the attempt cap; every attempt passes through the gate.
// Progress callbacks carry requestID so concurrent calls stay attributable.
func (c *CloudClient) Transcribe(ctx context.Context, utt audio.Utterance, language, requestID string) (string, error) {
	wavBytes, err := utt.WAV()
	if err != nil {
		return "", fmt.Errorf("encode utterance: %w", err)
	}

	var (
		text       string
		attempts   int
		lastStatus int
	)

	operation := func() error {
		if err := c.gate.Allow(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++

		req, err := c.buildRequest(ctx, wavBytes, language)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build transcription request: %w", err))
		}
		c.progress(requestID, ProgressRequestBuilt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.gate.RecordFailure()
			return err
		}
		defer resp.Body.Close()
		c.progress(requestID, ProgressResponseReceived)

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			c.gate.RecordFailure()
			return fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastStatus = resp.StatusCode
			if retryableStatus(resp.StatusCode) {
				c.gate.RecordFailure()
				return &httpStatusError{status: resp.StatusCode}
			}
			return backoff.Permanent(&RequestError{
				Endpoint:   c.Endpoint(),
				StatusCode: resp.StatusCode,
				Attempts:   attempts,
			})
		}

		parsed, err := parseTranscript(body)
		if err != nil {
			// Model-contract violation on a 2xx: terminal, surfaced as-is.
			return backoff.Permanent(err)
		}

		c.gate.RecordSuccess()
		c.progress(requestID, ProgressParsed)
		text = parsed
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		var statusErr *httpStatusError
		var reqErr *RequestError
		switch {
		case errors.As(err, &statusErr):
			return "", &RequestError{Endpoint: c.Endpoint(), StatusCode: statusErr.status, Attempts: attempts}
		case errors.As(err, &reqErr),
			errors.Is(err, ErrServiceUnavailable),
			errors.Is(err, ErrInvalidModelResponse):
			return "", err
		default:
			return "", &RequestError{Endpoint: c.Endpoint(), StatusCode: lastStatus, Attempts: attempts, Err: err}
		}
	}

	return text, nil
}

// buildRequest assembles a fresh multipart payload. Called once per attempt.
func (c *CloudClient) buildRequest(ctx context.Context, wavBytes []byte, language string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wavBytes); err != nil {
		return nil, err
	}

	c.mu.Lock()
	endpoint, apiKey, model := c.endpoint, c.apiKey, c.model
	c.mu.Unlock()

	if err := writer.WriteField("model", model); err != nil {
		return nil, err
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, err
	}
	if err := writer.WriteField("temperature", "0.0"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("User-Agent", "murmur/1.0")
	return req, nil
}

// parseTranscript enforces the `{"text": string}` contract. A present but
// empty text field is a valid empty transcript; a missing or non-string
// field is a model-contract error.
func parseTranscript(body []byte) (string, error) {
	var payload struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidModelResponse, err)
	}
	if payload.Text == nil {
		return "", ErrInvalidModelResponse
	}
	return *payload.Text, nil
}

func (c *CloudClient) progress(requestID string, percent int) {
	if c.onProgress != nil {
		c.onProgress(requestID, percent)
	}
}

// newTranscribeBackOff yields 2^attempt seconds plus up to 1s of jitter.
func newTranscribeBackOff() backoff.BackOff {
	return &attemptBackOff{}
}

type attemptBackOff struct {
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.attempt++
	base := time.Duration(1<<uint(b.attempt)) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return base + jitter
}

func (b *attemptBackOff) Reset() {
	b.attempt = 0
}
