package deliver

import (
	"sync"
	"time"

	"github.com/nvander/murmur/internal/classify"
)

const defaultHistorySize = 50

// InjectionAttempt is one delivery try, success or failure.
type InjectionAttempt struct {
	Method      classify.Method
	Success     bool
	Latency     time.Duration
	ProcessName string
	Category    classify.Category
	At          time.Time
}

// Metrics summarizes the rolling attempt history.
type Metrics struct {
	AverageLatency time.Duration
	SuccessRate    float64
	TotalAttempts  int64
	RecentFailures int
}

// Slow reports whether the observed average latency exceeds the threshold.
// It is a hint for the caller; the engine never switches methods on it.
func (m Metrics) Slow(threshold time.Duration) bool {
	return threshold > 0 && m.TotalAttempts > 0 && m.AverageLatency > threshold
}

// attemptHistory keeps the most recent N attempts plus an all-time counter.
type attemptHistory struct {
	mu       sync.Mutex
	attempts []InjectionAttempt
	limit    int
	total    int64
}

func newAttemptHistory(limit int) *attemptHistory {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	return &attemptHistory{limit: limit}
}

func (h *attemptHistory) record(attempt InjectionAttempt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total++
	h.attempts = append(h.attempts, attempt)
	if len(h.attempts) > h.limit {
		h.attempts = h.attempts[len(h.attempts)-h.limit:]
	}
}

func (h *attemptHistory) metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := Metrics{TotalAttempts: h.total}
	if len(h.attempts) == 0 {
		return m
	}

	var totalLatency time.Duration
	var successes int
	for _, a := range h.attempts {
		totalLatency += a.Latency
		if a.Success {
			successes++
		} else {
			m.RecentFailures++
		}
	}
	m.AverageLatency = totalLatency / time.Duration(len(h.attempts))
	m.SuccessRate = float64(successes) / float64(len(h.attempts))
	return m
}

func (h *attemptHistory) recent() []InjectionAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]InjectionAttempt, len(h.attempts))
	copy(out, h.attempts)
	return out
}
