// Package pipeline owns one end-to-end capture -> buffer -> transcription
// run wired into the session controller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nvander/murmur/internal/audio"
	"github.com/nvander/murmur/internal/config"
	"github.com/nvander/murmur/internal/session"
	"github.com/nvander/murmur/internal/transcribe"
)

// bufferCapacity bounds queued chunks between device callback and drain.
// At 20ms per chunk this holds over 80 seconds of speech.
const bufferCapacity = 4096

// Transcriber connects the pulse capture stream, the utterance buffer, and
// the transcription client.
type Transcriber struct {
	cfg    config.Config
	client *transcribe.Client
	logger *slog.Logger

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   *audio.Capture
	buffer    *audio.CaptureBuffer
}

// NewTranscriber constructs a pipeline transcriber from runtime config.
func NewTranscriber(cfg config.Config, client *transcribe.Client, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{cfg: cfg, client: client, logger: logger}
}

// Start resolves device selection and begins feeding the capture buffer.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("transcriber already started")
	}

	selection, err := audio.SelectDevice(ctx, t.cfg.Audio.Input, t.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	t.selection = selection
	if selection.Warning != "" {
		t.logger.Warn(selection.Warning)
	}

	buffer := audio.NewCaptureBuffer(audio.DefaultFormat, bufferCapacity, func(err error) {
		t.logger.Warn("capture buffer signal", "error", err.Error())
	})

	capture, err := audio.StartCapture(ctx, selection.Device, buffer)
	if err != nil {
		return err
	}

	t.buffer = buffer
	t.capture = capture
	t.started = true
	return nil
}

// StopAndTranscribe stops capture, drains the buffered utterance, and runs
// it through the transcription client.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	t.mu.Lock()
	started := t.started
	capture := t.capture
	buffer := t.buffer
	selection := t.selection
	t.started = false
	t.mu.Unlock()

	if !started || capture == nil || buffer == nil {
		return session.StopResult{}, session.ErrPipelineUnavailable
	}

	_ = capture.Stop()

	utterance := buffer.Drain()
	result := session.StopResult{
		AudioDevice:   describeDevice(selection.Device),
		BytesCaptured: capture.BytesCaptured(),
		DroppedChunks: int64(utterance.Dropped),
		AudioSeconds:  utterance.Duration().Seconds(),
	}
	if len(utterance.PCM) == 0 {
		return result, nil
	}

	start := time.Now()
	text, err := t.client.Transcribe(ctx, utterance)
	result.Latency = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("transcribe utterance: %w", err)
	}

	result.Transcript = text
	return result, nil
}

// Cancel stops capture and discards buffered audio without transcribing.
func (t *Transcriber) Cancel(_ context.Context) error {
	t.mu.Lock()
	capture := t.capture
	buffer := t.buffer
	t.started = false
	t.mu.Unlock()

	if capture != nil {
		_ = capture.Stop()
	}
	if buffer != nil {
		discarded := buffer.Clear()
		if discarded > 0 {
			t.logger.Info("discarded buffered audio", "chunks", discarded)
		}
	}
	return nil
}

// describeDevice formats device metadata for logs/session results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
