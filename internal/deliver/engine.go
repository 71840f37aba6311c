package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nvander/murmur/internal/classify"
)

const defaultAttemptTimeout = 2 * time.Second

// Options bound one delivery call.
type Options struct {
	ClipboardFallback bool
	RetryCount        int
	RetryDelay        time.Duration
	AttemptTimeout    time.Duration
}

// Result describes a successful delivery.
type Result struct {
	Method   classify.Method
	Text     string
	Latency  time.Duration
	Attempts int
	FellBack bool
}

// Engine picks an injection method from the application profile, executes
// it with a bounded retry budget, and falls back to the opposite method at
// most once. Every attempt lands in the rolling history.
type Engine struct {
	injectors map[classify.Method]Injector
	history   *attemptHistory
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine wires the available injectors.
func NewEngine(logger *slog.Logger, injectors ...Injector) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	byMethod := map[classify.Method]Injector{}
	for _, inj := range injectors {
		byMethod[inj.Method()] = inj
	}
	return &Engine{
		injectors: byMethod,
		history:   newAttemptHistory(defaultHistorySize),
		logger:    logger,
		now:       time.Now,
	}
}

// Deliver injects text into the application described by profile.
func (e *Engine) Deliver(ctx context.Context, text string, profile classify.Profile, opts Options) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	prepared := PrepareText(text, profile.Capabilities)
	if strings.TrimSpace(prepared) == "" {
		return Result{}, fmt.Errorf("%w: %s target", ErrApplicationIncompatible, profile.Category)
	}

	preferred := profile.Capabilities.PreferredMethod
	attempts := 0

	result, err := e.tryMethod(ctx, preferred, prepared, profile, opts, 1+opts.RetryCount, &attempts)
	if err == nil {
		result.FellBack = false
		return result, nil
	}
	primaryErr := err

	fallback := preferred.Opposite()
	if opts.ClipboardFallback {
		e.logger.Warn("preferred delivery method failed; trying fallback",
			"preferred", string(preferred), "fallback", string(fallback), "error", primaryErr)

		result, err = e.tryMethod(ctx, fallback, prepared, profile, opts, 1, &attempts)
		if err == nil {
			result.FellBack = true
			return result, nil
		}
	}

	return Result{Attempts: attempts}, fmt.Errorf("%w: %v", ErrAllMethodsExhausted, primaryErr)
}

// tryMethod runs up to budget attempts of one method, recording each.
func (e *Engine) tryMethod(ctx context.Context, method classify.Method, text string, profile classify.Profile, opts Options, budget int, attempts *int) (Result, error) {
	injector, ok := e.injectors[method]
	if !ok {
		return Result{}, &MethodError{Method: method, Err: fmt.Errorf("no injector available")}
	}

	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	var lastErr error
	for i := 0; i < budget; i++ {
		if i > 0 && opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}

		*attempts++
		start := e.now()
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := injector.Inject(attemptCtx, text)
		cancel()
		latency := e.now().Sub(start)

		e.history.record(InjectionAttempt{
			Method:      method,
			Success:     err == nil,
			Latency:     latency,
			ProcessName: profile.ProcessName,
			Category:    profile.Category,
			At:          start,
		})

		if err == nil {
			return Result{Method: method, Text: text, Latency: latency, Attempts: *attempts}, nil
		}
		lastErr = err
		e.logger.Debug("delivery attempt failed", "method", string(method), "error", err)
	}
	return Result{}, lastErr
}

// Metrics summarizes the rolling attempt history.
func (e *Engine) Metrics() Metrics {
	return e.history.metrics()
}

// RecentAttempts returns a copy of the rolling history, oldest first.
func (e *Engine) RecentAttempts() []InjectionAttempt {
	return e.history.recent()
}
