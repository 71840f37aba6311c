// Package app wires configuration, the transcription pipeline, delivery,
// and IPC into the murmur command surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nvander/murmur/internal/audio"
	"github.com/nvander/murmur/internal/classify"
	"github.com/nvander/murmur/internal/cli"
	"github.com/nvander/murmur/internal/config"
	"github.com/nvander/murmur/internal/deliver"
	"github.com/nvander/murmur/internal/doctor"
	"github.com/nvander/murmur/internal/history"
	"github.com/nvander/murmur/internal/indicator"
	"github.com/nvander/murmur/internal/ipc"
	"github.com/nvander/murmur/internal/logging"
	"github.com/nvander/murmur/internal/pipeline"
	"github.com/nvander/murmur/internal/session"
	"github.com/nvander/murmur/internal/transcribe"
	"github.com/nvander/murmur/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Field != "" {
			msg = fmt.Sprintf("%s: %s", w.Field, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandUsage:
		return r.commandUsage(ctx, cfgLoaded.Config, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandUsage(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open history: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	if cfg.History.Path == "" {
		fmt.Fprintln(r.Stdout, "usage history is disabled (history.path is empty)")
		return 0
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read usage totals: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "sessions:       %d\n", totals.Sessions)
	fmt.Fprintf(r.Stdout, "audio:          %.1fs\n", totals.AudioSeconds)
	fmt.Fprintf(r.Stdout, "characters:     %d\n", totals.Chars)
	fmt.Fprintf(r.Stdout, "estimated cost: $%.4f\n", totals.Cost)

	recent, err := store.RecentSessions(ctx, 10)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read recent sessions: %v\n", err)
		return 1
	}
	if len(recent) > 0 {
		fmt.Fprintln(r.Stdout, "\nrecent sessions:")
		for _, rec := range recent {
			fmt.Fprintf(r.Stdout, "  %s  mode=%s audio=%.1fs chars=%d cost=$%.4f\n",
				rec.CreatedAt.Local().Format(time.RFC3339), rec.Mode, rec.AudioSeconds, rec.Chars, rec.Cost)
		}
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active murmur session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.CommandToggle)
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	return r.runOwnerSession(ctx, cfg, logger, listener)
}

// runOwnerSession builds the full pipeline and serves one record/stop cycle.
func (r Runner) runOwnerSession(ctx context.Context, cfg config.Config, logger *slog.Logger, listener net.Listener) int {
	client, err := transcribe.NewClient(cfg.Transcription, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	dispatcher, classifier, err := buildDispatcher(cfg, logger, r.Stdout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	transcriber := pipeline.NewTranscriber(cfg, client, logger)
	notifier := indicator.New(cfg.Indicator, logger)
	deliverer := session.DelivererFunc(func(ctx context.Context, transcript string) (session.DeliveryResult, error) {
		res, err := dispatcher.Dispatch(ctx, transcript)
		if err != nil {
			return session.DeliveryResult{}, err
		}
		return session.DeliveryResult{
			Method:      string(res.Method),
			FellBack:    res.FellBack,
			PreviewOnly: res.PreviewOnly,
			Latency:     res.Latency,
		}, nil
	})
	controller := session.NewController(logger, transcriber, deliverer, notifier)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	// Pre-warms capability cache so delivery classifies from a recent sample.
	go classifier.Watch(serverCtx, time.Duration(cfg.Classifier.PollIntervalMS)*time.Millisecond, func(profile classify.Profile) {
		logger.Debug("foreground application changed",
			"process", profile.ProcessName,
			"category", string(profile.Category),
			"method", string(profile.Capabilities.PreferredMethod),
		)
	})

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)
	recordHistory(context.Background(), cfg, logger, client, dispatcher, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if !result.Delivery.PreviewOnly && strings.TrimSpace(result.Transcript) != "" {
		fmt.Fprintln(r.Stdout, strings.TrimSpace(result.Transcript))
	}

	return 0
}

// buildDispatcher assembles classifier, injectors, and the delivery engine.
func buildDispatcher(cfg config.Config, logger *slog.Logger, preview io.Writer) (*deliver.Dispatcher, *classify.Classifier, error) {
	keystroke, err := deliver.NewKeystrokeInjector(
		cfg.Delivery.TypeCommand,
		time.Duration(cfg.Delivery.InterCharDelayMS)*time.Millisecond,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("delivery.type_command: %w", err)
	}
	clipboard := deliver.NewClipboardInjector(cfg.Delivery.PasteShortcut)

	classifier := classify.New(classify.HyprQuerier{}, logger)
	engine := deliver.NewEngine(logger, keystroke, clipboard)
	opts := deliver.Options{
		ClipboardFallback: cfg.Delivery.ClipboardFallback,
		RetryCount:        cfg.Delivery.RetryCount,
		RetryDelay:        time.Duration(cfg.Delivery.RetryDelayMS) * time.Millisecond,
		AttemptTimeout:    time.Duration(cfg.Delivery.AttemptTimeoutMS) * time.Millisecond,
	}
	threshold := time.Duration(cfg.Delivery.LatencyThresholdMS) * time.Millisecond

	return deliver.NewDispatcher(classifier, engine, opts, threshold, preview, logger), classifier, nil
}

// recordHistory persists the finished session and its delivery attempts.
// Failures are logged only; history must never break dictation.
func recordHistory(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	client *transcribe.Client,
	dispatcher *deliver.Dispatcher,
	result session.Result,
) {
	if cfg.History.Path == "" || result.Cancelled || result.Err != nil {
		return
	}

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("open history failed", "error", err.Error())
		return
	}
	defer func() { _ = store.Close() }()

	sessionID := uuid.NewString()
	usage := client.Usage()
	rec := history.SessionRecord{
		SessionID:    sessionID,
		Mode:         string(cfg.Transcription.Mode),
		AudioSeconds: result.AudioSeconds,
		Chars:        len(result.Transcript),
		Cost:         usage.EstimatedCost,
	}
	if err := store.AppendSession(ctx, rec); err != nil {
		logger.Warn("append session history failed", "error", err.Error())
	}

	for _, attempt := range dispatcher.RecentAttempts() {
		rec := history.AttemptRecord{
			SessionID:   sessionID,
			Method:      string(attempt.Method),
			Success:     attempt.Success,
			LatencyMS:   attempt.Latency.Milliseconds(),
			ProcessName: attempt.ProcessName,
			Category:    string(attempt.Category),
			CreatedAt:   attempt.At,
		}
		if err := store.AppendAttempt(ctx, rec); err != nil {
			logger.Warn("append attempt history failed", "error", err.Error())
			return
		}
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"dropped_chunks", result.DroppedChunks,
		"audio_seconds", result.AudioSeconds,
		"transcript_length", len(result.Transcript),
		"delivery_method", result.Delivery.Method,
		"delivery_fell_back", result.Delivery.FellBack,
		"delivery_preview_only", result.Delivery.PreviewOnly,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 0)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
