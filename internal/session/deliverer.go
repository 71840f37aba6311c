package session

import (
	"context"
	"time"
)

// DeliveryResult reports how a transcript reached the focused application.
type DeliveryResult struct {
	Method      string
	FellBack    bool
	PreviewOnly bool
	Latency     time.Duration
}

// Deliverer injects a transcript into the focused application when session
// stop succeeds.
type Deliverer interface {
	Deliver(context.Context, string) (DeliveryResult, error)
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(context.Context, string) (DeliveryResult, error)

func (f DelivererFunc) Deliver(ctx context.Context, transcript string) (DeliveryResult, error) {
	return f(ctx, transcript)
}
