package transcribe

import (
	"sync"

	"github.com/nvander/murmur/internal/audio"
)

// UsageSnapshot is a point-in-time copy of the accumulated usage counters.
type UsageSnapshot struct {
	Requests      int64
	AudioSeconds  float64
	EstimatedCost float64
}

// UsageRecord accumulates request count and estimated cost. Values only grow
// until an explicit Reset; all access is serialized through its own mutex.
type UsageRecord struct {
	mu            sync.Mutex
	requests      int64
	audioSeconds  float64
	estimatedCost float64
	costPerMinute float64
}

// NewUsageRecord builds an accumulator charging costPerMinute of audio.
func NewUsageRecord(costPerMinute float64) *UsageRecord {
	return &UsageRecord{costPerMinute: costPerMinute}
}

// Add records one successful request, estimating duration from byte length
// and the PCM format.
func (u *UsageRecord) Add(byteLen int, format audio.Format) {
	rate := format.BytesPerSecond()
	if rate <= 0 {
		rate = audio.DefaultFormat.BytesPerSecond()
	}
	seconds := float64(byteLen) / float64(rate)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.requests++
	u.audioSeconds += seconds
	u.estimatedCost += seconds / 60 * u.costPerMinute
}

// Snapshot returns a copy of the current counters.
func (u *UsageRecord) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{
		Requests:      u.requests,
		AudioSeconds:  u.audioSeconds,
		EstimatedCost: u.estimatedCost,
	}
}

// Reset zeroes the counters.
func (u *UsageRecord) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.requests = 0
	u.audioSeconds = 0
	u.estimatedCost = 0
}
