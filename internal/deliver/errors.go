// Package deliver injects transcribed text into the focused application,
// choosing a method from the application profile and falling back once when
// it fails.
package deliver

import (
	"errors"
	"fmt"

	"github.com/nvander/murmur/internal/classify"
)

var (
	// ErrEmptyText rejects delivery of nothing.
	ErrEmptyText = errors.New("delivery text is empty")

	// ErrApplicationIncompatible means no representable text remains for
	// the target application (e.g. nothing survives ASCII filtering).
	ErrApplicationIncompatible = errors.New("text cannot be represented in the target application")

	// ErrAllMethodsExhausted means the preferred method and its one
	// permitted fallback both failed.
	ErrAllMethodsExhausted = errors.New("all delivery methods exhausted")
)

// MethodError reports a single injection method failure.
type MethodError struct {
	Method classify.Method
	Err    error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s injection failed: %v", e.Method, e.Err)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}
