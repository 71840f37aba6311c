// Package indicator raises desktop notifications for session state changes.
package indicator

import (
	"context"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/nvander/murmur/internal/config"
	"github.com/nvander/murmur/internal/hypr"
)

const appTitle = "murmur"

// Notifier surfaces session state through desktop notifications. Failures
// are logged and swallowed; a broken notification daemon must never break
// dictation.
type Notifier struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, logger: logger}
}

func (n *Notifier) Recording(ctx context.Context) {
	n.notify(ctx, "Recording…")
}

func (n *Notifier) Transcribing(ctx context.Context) {
	n.notify(ctx, "Transcribing…")
}

func (n *Notifier) Delivering(ctx context.Context) {
	n.notify(ctx, "Delivering…")
}

func (n *Notifier) Complete(ctx context.Context) {
	n.dismissOverlay(ctx)
	n.notify(ctx, "Dictation delivered")
}

func (n *Notifier) Cancelled(ctx context.Context) {
	n.dismissOverlay(ctx)
	n.notify(ctx, "Dictation cancelled")
}

func (n *Notifier) Error(ctx context.Context, text string) {
	if text == "" {
		text = "Dictation error"
	}
	if !n.cfg.Enable {
		return
	}
	if err := beeep.Alert(appTitle, text, ""); err != nil {
		// No notification daemon; fall back to the compositor overlay.
		if hyprErr := hypr.Notify(ctx, hyprIconError, notifyTimeoutMS, "rgb(f38ba8)", text); hyprErr != nil {
			n.logger.Debug("notification failed", "error", err, "fallback_error", hyprErr)
		}
	}
}

const (
	hyprIconInfo    = 1
	hyprIconError   = 3
	notifyTimeoutMS = 1500
)

// dismissOverlay clears any lingering compositor overlay from earlier phases.
func (n *Notifier) dismissOverlay(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	if err := hypr.DismissNotify(ctx); err != nil {
		n.logger.Debug("dismiss overlay failed", "error", err)
	}
}

func (n *Notifier) notify(ctx context.Context, text string) {
	if !n.cfg.Enable {
		return
	}
	if err := beeep.Notify(appTitle, text, ""); err != nil {
		if hyprErr := hypr.Notify(ctx, hyprIconInfo, notifyTimeoutMS, "", text); hyprErr != nil {
			n.logger.Debug("notification failed", "error", err, "fallback_error", hyprErr)
		}
	}
}
