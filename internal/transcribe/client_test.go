package transcribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvander/murmur/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cfg config.TranscriptionConfig) *Client {
	t.Helper()
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.MaxRequestsPerMinute == 0 {
		cfg.MaxRequestsPerMinute = 1000
	}
	if cfg.CostPerMinute == 0 {
		cfg.CostPerMinute = 0.006
	}
	c, err := NewClient(cfg, quietLogger())
	require.NoError(t, err)
	c.cloud.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestClientBreakerTripsAndFailsFast(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{Mode: config.ModeCloud, Endpoint: server.URL})

	_, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.Error(t, err)
	assert.Equal(t, int64(defaultBreakerThreshold), hits.Load())
	assert.Equal(t, CircuitOpen, c.CircuitState())

	// With the circuit open the next call never reaches the network.
	_, err = c.Transcribe(context.Background(), testUtterance(3200))
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int64(defaultBreakerThreshold), hits.Load())
}

func TestClientRateLimitRejectsImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{
		Mode:                 config.ModeCloud,
		Endpoint:             server.URL,
		MaxRequestsPerMinute: 1,
	})

	_, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), testUtterance(3200))
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Greater(t, limited.RetryAfter.Seconds(), 0.0)
}

func TestClientLocalFallsBackToCloud(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"text": "cloud text"}`))
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{
		Mode:              config.ModeLocal,
		AutoFallbackCloud: true,
		Endpoint:          server.URL,
		LocalCommand:      "/nonexistent/murmur-stt",
	})

	text, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.NoError(t, err)
	assert.Equal(t, "cloud text", text)
	assert.Equal(t, int64(1), hits.Load())
}

func TestClientLocalFailureWithoutFallback(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{
		Mode:         config.ModeLocal,
		Endpoint:     server.URL,
		LocalCommand: "/nonexistent/murmur-stt",
	})

	_, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.Error(t, err)
	assert.Equal(t, int64(0), hits.Load())
}

func TestClientLocalSuccessSkipsCloudAndUsage(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cmd := writeFakeRecognizer(t, `printf '{"text": "offline", "confidence": 0.8}'`)
	c := newTestClient(t, config.TranscriptionConfig{
		Mode:         config.ModeLocal,
		Endpoint:     server.URL,
		LocalCommand: cmd,
	})

	text, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.NoError(t, err)
	assert.Equal(t, "offline", text)
	assert.Equal(t, int64(0), hits.Load())
	assert.Zero(t, c.Usage().Requests)
}

func TestClientUsageAccruesOnCloudSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "two seconds"}`))
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{Mode: config.ModeCloud, Endpoint: server.URL})

	_, err := c.Transcribe(context.Background(), testUtterance(64000))
	require.NoError(t, err)

	snap := c.Usage()
	assert.Equal(t, int64(1), snap.Requests)
	assert.InDelta(t, 2.0, snap.AudioSeconds, 1e-9)
	assert.InDelta(t, 0.0002, snap.EstimatedCost, 1e-9)
}

type recordingObserver struct {
	mu          sync.Mutex
	started     []string
	progress    []int
	progressIDs []string
	completed   []string
	failed      []error
}

func (o *recordingObserver) TranscriptionStarted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *recordingObserver) TranscriptionProgress(id string, percent int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, percent)
	o.progressIDs = append(o.progressIDs, id)
}

func (o *recordingObserver) TranscriptionCompleted(_ string, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, text)
}

func (o *recordingObserver) TranscriptionFailed(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func TestClientObserverLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "observed"}`))
	}))
	defer server.Close()

	c := newTestClient(t, config.TranscriptionConfig{Mode: config.ModeCloud, Endpoint: server.URL})
	obs := &recordingObserver{}
	c.SetObserver(obs)

	_, err := c.Transcribe(context.Background(), testUtterance(3200))
	require.NoError(t, err)

	require.Len(t, obs.started, 1)
	assert.NotEmpty(t, obs.started[0])
	assert.Equal(t, []int{ProgressRequestBuilt, ProgressResponseReceived, ProgressParsed}, obs.progress)
	for _, id := range obs.progressIDs {
		assert.Equal(t, obs.started[0], id)
	}
	assert.Equal(t, []string{"observed"}, obs.completed)
	assert.Empty(t, obs.failed)
}
