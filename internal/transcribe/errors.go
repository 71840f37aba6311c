// Package transcribe turns captured utterances into text through a cloud
// speech endpoint or a local recognizer subprocess, with rate limiting,
// circuit breaking, and bounded retries around the cloud path.
package transcribe

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrServiceUnavailable is returned without touching the network while
	// the circuit breaker is open.
	ErrServiceUnavailable = errors.New("transcription service unavailable: circuit open")

	// ErrInvalidModelResponse marks a 2xx response whose body violates the
	// model contract. Never retried.
	ErrInvalidModelResponse = errors.New("model response missing transcript text")
)

// RateLimitedError is returned immediately when the request budget for the
// current window is exhausted.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("transcription rate limited; retry in %s", e.RetryAfter.Round(time.Millisecond))
}

// RequestError carries enough context (endpoint, last status, attempts) for
// the caller to act on a cloud request that failed after retry policy ran out.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transcription request to %s failed with HTTP %d after %d attempt(s)", e.Endpoint, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("transcription request to %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// LocalError wraps local recognizer failures. Transient failures are
// eligible for automatic cloud fallback; the rest propagate as-is.
type LocalError struct {
	Transient bool
	Err       error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("local transcription failed: %v", e.Err)
}

func (e *LocalError) Unwrap() error {
	return e.Err
}

// IsCloudFallbackEligible reports whether a local failure should fall
// through to the cloud path when auto-fallback is enabled.
func IsCloudFallbackEligible(err error) bool {
	var localErr *LocalError
	return errors.As(err, &localErr) && localErr.Transient
}
