package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nvander/murmur/internal/classify"
)

// DispatchResult is the dispatcher-level delivery outcome.
type DispatchResult struct {
	Method      classify.Method
	FellBack    bool
	PreviewOnly bool
	Latency     time.Duration
}

// Dispatcher ties the classifier and engine together for one delivery call
// and applies the orchestrator-side policies: preview-only degradation when
// injection is impossible, and flipping the preferred method on the next
// call when the latency hint fires.
type Dispatcher struct {
	classifier *classify.Classifier
	engine     *Engine
	opts       Options
	threshold  time.Duration
	preview    io.Writer
	logger     *slog.Logger

	mu       sync.Mutex
	override *classify.Method
}

// NewDispatcher builds a dispatcher. preview receives the transcript when
// no injection method can carry it.
func NewDispatcher(classifier *classify.Classifier, engine *Engine, opts Options, latencyThreshold time.Duration, preview io.Writer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		classifier: classifier,
		engine:     engine,
		opts:       opts,
		threshold:  latencyThreshold,
		preview:    preview,
		logger:     logger,
	}
}

// Dispatch classifies the focused application and delivers the transcript.
// Injection failure degrades to preview instead of surfacing an error, so
// dictated text is never lost.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (DispatchResult, error) {
	profile, err := d.classifier.Current(ctx)
	if err != nil {
		d.logger.Warn("classification failed; using default capabilities", "error", err)
		profile = classify.Profile{
			Category:     classify.CategoryOther,
			Capabilities: classify.AssessCapabilities(classify.CategoryOther),
		}
	}

	d.mu.Lock()
	if d.override != nil {
		profile.Capabilities.PreferredMethod = *d.override
	}
	d.mu.Unlock()

	result, err := d.engine.Deliver(ctx, text, profile, d.opts)
	if err != nil {
		if errors.Is(err, ErrAllMethodsExhausted) || errors.Is(err, ErrApplicationIncompatible) {
			d.logger.Warn("injection impossible; printing transcript", "error", err)
			d.printPreview(text)
			return DispatchResult{PreviewOnly: true}, nil
		}
		return DispatchResult{}, err
	}

	d.applyLatencyHint(result.Method)

	return DispatchResult{
		Method:   result.Method,
		FellBack: result.FellBack,
		Latency:  result.Latency,
	}, nil
}

// applyLatencyHint flips the preferred method for the next dispatch when
// the rolling average exceeds the threshold. The engine itself never
// switches; the policy lives here.
func (d *Dispatcher) applyLatencyHint(used classify.Method) {
	if d.threshold <= 0 {
		return
	}
	metrics := d.engine.Metrics()

	d.mu.Lock()
	defer d.mu.Unlock()
	if metrics.Slow(d.threshold) {
		opposite := used.Opposite()
		d.override = &opposite
		d.logger.Info("delivery latency above threshold; preferring alternate method",
			"average", metrics.AverageLatency.String(), "next_method", string(opposite))
		return
	}
	d.override = nil
}

// Metrics exposes the engine's rolling metrics.
func (d *Dispatcher) Metrics() Metrics {
	return d.engine.Metrics()
}

// RecentAttempts exposes the engine's rolling history.
func (d *Dispatcher) RecentAttempts() []InjectionAttempt {
	return d.engine.RecentAttempts()
}

func (d *Dispatcher) printPreview(text string) {
	if d.preview == nil {
		return
	}
	fmt.Fprintln(d.preview, text)
}
