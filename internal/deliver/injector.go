package deliver

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-shellwords"

	"github.com/nvander/murmur/internal/classify"
	"github.com/nvander/murmur/internal/hypr"
)

// Injector places text into the focused application using one method.
type Injector interface {
	Method() classify.Method
	Inject(ctx context.Context, text string) error
}

// KeystrokeInjector types text through a wtype-style command. A trailing
// "-" in the argv means the text is piped on stdin.
type KeystrokeInjector struct {
	argv           []string
	interCharDelay time.Duration
}

// NewKeystrokeInjector parses the configured type command into argv form.
func NewKeystrokeInjector(command string, interCharDelay time.Duration) (*KeystrokeInjector, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse type command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("type command is empty")
	}
	return &KeystrokeInjector{argv: argv, interCharDelay: interCharDelay}, nil
}

func (k *KeystrokeInjector) Method() classify.Method {
	return classify.MethodKeystroke
}

func (k *KeystrokeInjector) Inject(ctx context.Context, text string) error {
	argv := append([]string{}, k.argv...)
	if k.interCharDelay > 0 {
		argv = insertBeforeStdinMarker(argv, "-d", strconv.FormatInt(k.interCharDelay.Milliseconds(), 10))
	}

	if err := runCommandWithInput(ctx, argv, text); err != nil {
		return &MethodError{Method: classify.MethodKeystroke, Err: err}
	}
	return nil
}

// insertBeforeStdinMarker places extra flags ahead of a trailing "-" so the
// stdin marker stays last.
func insertBeforeStdinMarker(argv []string, extra ...string) []string {
	last := len(argv) - 1
	if argv[last] == "-" {
		out := append([]string{}, argv[:last]...)
		out = append(out, extra...)
		return append(out, "-")
	}
	return append(argv, extra...)
}

// ClipboardInjector sets the clipboard and dispatches the paste shortcut at
// the focused window.
type ClipboardInjector struct {
	shortcut string
}

// NewClipboardInjector uses a paste shortcut of MOD,KEY form (e.g. "CTRL,V").
func NewClipboardInjector(shortcut string) *ClipboardInjector {
	return &ClipboardInjector{shortcut: shortcut}
}

func (c *ClipboardInjector) Method() classify.Method {
	return classify.MethodClipboard
}

func (c *ClipboardInjector) Inject(ctx context.Context, text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return &MethodError{Method: classify.MethodClipboard, Err: fmt.Errorf("set clipboard: %w", err)}
	}

	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return &MethodError{Method: classify.MethodClipboard, Err: err}
	}

	payload, err := buildPasteShortcut(c.shortcut, window.Address)
	if err != nil {
		return &MethodError{Method: classify.MethodClipboard, Err: err}
	}
	if err := hypr.SendShortcut(ctx, payload); err != nil {
		return &MethodError{Method: classify.MethodClipboard, Err: err}
	}
	return nil
}

func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("paste shortcut cannot be empty")
	}

	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}

	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("active window unavailable")
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

// runCommandWithInput executes argv and writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
