// Package session coordinates dictation lifecycle state, actions, and
// delivery flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nvander/murmur/internal/fsm"
	"github.com/nvander/murmur/internal/ipc"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State         fsm.State
	Transcript    string
	Cancelled     bool
	Err           error
	AudioDevice   string
	BytesCaptured int64
	DroppedChunks int64
	AudioSeconds  float64
	Delivery      DeliveryResult
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	Recording(context.Context)
	Transcribing(context.Context)
	Delivering(context.Context)
	Complete(context.Context)
	Cancelled(context.Context)
	Error(context.Context, string)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) Recording(context.Context)     {}
func (noopIndicator) Transcribing(context.Context)  {}
func (noopIndicator) Delivering(context.Context)    {}
func (noopIndicator) Complete(context.Context)      {}
func (noopIndicator) Cancelled(context.Context)     {}
func (noopIndicator) Error(context.Context, string) {}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger     *slog.Logger
	transcribe Transcriber
	deliver    Deliverer
	indicator  Indicator

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	transcriber Transcriber,
	deliverer Deliverer,
	indicator Indicator,
) *Controller {
	if transcriber == nil {
		transcriber = PlaceholderTranscriber{}
	}
	if deliverer == nil {
		deliverer = DelivererFunc(func(context.Context, string) (DeliveryResult, error) {
			return DeliveryResult{PreviewOnly: true}, nil
		})
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		logger:     logger,
		transcribe: transcriber,
		deliver:    deliverer,
		indicator:  indicator,
		state:      fsm.StateIdle,
		actions:    make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	if err := c.transition(fsm.EventStart); err != nil {
		return c.finish(result, err)
	}

	c.indicator.Recording(ctx)

	if err := c.transcribe.Start(ctx); err != nil {
		c.indicator.Error(ctx, "Unable to start recording")
		c.toErrorAndReset()
		return c.finish(result, err)
	}

	select {
	case <-ctx.Done():
		_ = c.transcribe.Cancel(context.Background())
		c.indicator.Cancelled(context.Background())
		c.toErrorAndReset()
		return c.finish(result, ctx.Err())
	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = c.transcribe.Cancel(context.Background())
			c.indicator.Cancelled(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return c.finish(result, nil)
		case actionStop:
			return c.stopAndDeliver(ctx, result)
		default:
			c.toErrorAndReset()
			return c.finish(result, fmt.Errorf("unknown action %d", a))
		}
	}
}

// stopAndDeliver runs the transcribe and deliver phases after a stop action.
func (c *Controller) stopAndDeliver(ctx context.Context, result Result) Result {
	if err := c.transition(fsm.EventStop); err != nil {
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	c.indicator.Transcribing(ctx)

	stopResult, err := c.transcribe.StopAndTranscribe(ctx)
	result.AudioDevice = stopResult.AudioDevice
	result.BytesCaptured = stopResult.BytesCaptured
	result.DroppedChunks = stopResult.DroppedChunks
	result.AudioSeconds = stopResult.AudioSeconds
	if err != nil {
		c.indicator.Error(context.Background(), "Speech recognition failed")
		c.toErrorAndReset()
		return c.finish(result, err)
	}

	result.Transcript = stopResult.Transcript
	if strings.TrimSpace(stopResult.Transcript) == "" {
		c.indicator.Error(context.Background(), "No speech detected")
		c.toErrorAndReset()
		return c.finish(result, ErrEmptyTranscript)
	}

	if err := c.transition(fsm.EventTranscribed); err != nil {
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	c.indicator.Delivering(ctx)

	delivery, err := c.deliver.Deliver(ctx, stopResult.Transcript)
	result.Delivery = delivery
	if err != nil {
		c.indicator.Error(context.Background(), "Text delivery failed")
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	c.indicator.Complete(context.Background())

	if err := c.transition(fsm.EventDelivered); err != nil {
		return c.finish(result, err)
	}
	return c.finish(result, nil)
}

// finish stamps the terminal fields shared by every return path.
func (c *Controller) finish(result Result, err error) Result {
	result.State = c.State()
	result.Err = err
	result.FinishedAt = time.Now()
	return result
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandToggle:
		return c.requestStop(ipc.CommandToggle)
	case ipc.CommandStop:
		return c.requestStop(ipc.CommandStop)
	case ipc.CommandCancel:
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing || state == fsm.StateDelivering {
		return ipc.Response{OK: false, State: string(state), Error: "already finishing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing || state == fsm.StateDelivering {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while finishing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

// IsPipelineUnavailable reports whether an error represents missing pipeline wiring.
func IsPipelineUnavailable(err error) bool {
	return errors.Is(err, ErrPipelineUnavailable)
}
