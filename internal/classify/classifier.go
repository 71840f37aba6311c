package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Window is the raw foreground-window snapshot a querier produces.
type Window struct {
	ProcessName string
	Title       string
	Class       string
}

// WindowQuerier reads the current foreground window. Implementations talk
// to the compositor; tests substitute a fake.
type WindowQuerier interface {
	ActiveWindow(ctx context.Context) (Window, error)
}

type cacheKey struct {
	process  string
	category Category
}

// Classifier resolves the foreground window to an application profile.
// Capability assessments are cached by (process, category) and refreshed,
// never evicted.
type Classifier struct {
	querier WindowQuerier
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]Capabilities
}

// New builds a classifier over the given window querier.
func New(querier WindowQuerier, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		querier: querier,
		logger:  logger,
		cache:   map[cacheKey]Capabilities{},
	}
}

// Current classifies the foreground window. Repeated calls with an
// unchanged window return equal profiles.
func (c *Classifier) Current(ctx context.Context) (Profile, error) {
	window, err := c.querier.ActiveWindow(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("query foreground window: %w", err)
	}

	category := Categorize(window.Class, window.ProcessName)
	key := cacheKey{process: strings.ToLower(window.ProcessName), category: category}

	c.mu.Lock()
	caps, ok := c.cache[key]
	if !ok {
		caps = AssessCapabilities(category)
		c.cache[key] = caps
	}
	c.mu.Unlock()

	return Profile{
		ProcessName:  window.ProcessName,
		WindowTitle:  window.Title,
		WindowClass:  window.Class,
		Category:     category,
		Capabilities: caps,
	}, nil
}

// Watch polls the foreground window at the given interval and invokes
// onChange when the application identity differs from the previous sample.
// Sampling is single-threaded: a new cycle starts only after the previous
// classification finished. Blocks until ctx is done.
func (c *Classifier) Watch(ctx context.Context, interval time.Duration, onChange func(Profile)) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var previous *Profile
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		profile, err := c.Current(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("foreground sample failed", "error", err)
			continue
		}

		if previous == nil || !profile.SameApplication(*previous) {
			if onChange != nil {
				onChange(profile)
			}
		}
		previous = &profile
	}
}
