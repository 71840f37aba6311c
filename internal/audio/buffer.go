package audio

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Format describes the fixed PCM layout produced by the capture stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is 16kHz mono s16, the layout every recognizer here expects.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

// BytesPerSecond returns the PCM byte rate for duration estimation.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// Chunk is one immutable slice of captured PCM with its arrival timestamp.
type Chunk struct {
	Data       []byte
	CapturedAt time.Time
}

// Utterance is the ordered concatenation of all chunks captured between
// start and stop. It exists for exactly one recording session.
type Utterance struct {
	PCM       []byte
	Format    Format
	Chunks    int
	Dropped   int
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration estimates the audio length from byte count and format.
func (u Utterance) Duration() time.Duration {
	rate := u.Format.BytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(u.PCM)) / float64(rate) * float64(time.Second))
}

// CaptureError is the non-fatal signal raised when the producer path has to
// drop audio. Capture continues; the error is reported, never thrown.
type CaptureError struct {
	Reason  string
	Dropped int64
}

func (e CaptureError) Error() string {
	return fmt.Sprintf("audio capture degraded: %s (%d chunks dropped)", e.Reason, e.Dropped)
}

// CaptureBuffer is the single-producer/single-consumer store between the
// device callback and the control thread. Append never blocks the producer;
// Drain and Clear are consumer-side operations.
type CaptureBuffer struct {
	format   Format
	queue    chan Chunk
	dropped  atomic.Int64
	appended atomic.Int64
	bytes    atomic.Int64
	onError  func(error)
}

// NewCaptureBuffer builds a buffer holding at most capacity queued chunks.
// onError receives non-fatal CaptureError signals and may be nil.
func NewCaptureBuffer(format Format, capacity int, onError func(error)) *CaptureBuffer {
	if capacity <= 0 {
		capacity = 512
	}
	return &CaptureBuffer{
		format:  format,
		queue:   make(chan Chunk, capacity),
		onError: onError,
	}
}

// Append enqueues one chunk from the device callback. The data is copied so
// the caller may reuse its buffer. On a full queue the chunk is dropped and
// a CaptureError is signalled; Append itself never blocks and never fails.
func (b *CaptureBuffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := Chunk{Data: append([]byte(nil), data...), CapturedAt: time.Now()}

	select {
	case b.queue <- chunk:
		b.appended.Add(1)
		b.bytes.Add(int64(len(chunk.Data)))
	default:
		dropped := b.dropped.Add(1)
		if b.onError != nil {
			b.onError(CaptureError{Reason: "buffer full", Dropped: dropped})
		}
	}
}

// Drain removes every queued chunk and returns them concatenated in append
// order as one utterance. The producer must have stopped appending to this
// utterance before Drain is called.
func (b *CaptureBuffer) Drain() Utterance {
	utt := Utterance{Format: b.format, Dropped: int(b.dropped.Load())}

	for {
		select {
		case chunk := <-b.queue:
			if utt.Chunks == 0 {
				utt.StartedAt = chunk.CapturedAt
			}
			utt.EndedAt = chunk.CapturedAt
			utt.PCM = append(utt.PCM, chunk.Data...)
			utt.Chunks++
		default:
			return utt
		}
	}
}

// Clear discards all buffered chunks without assembling them, returning the
// number thrown away. Used on cancel.
func (b *CaptureBuffer) Clear() int {
	cleared := 0
	for {
		select {
		case <-b.queue:
			cleared++
		default:
			return cleared
		}
	}
}

// BytesBuffered reports total bytes accepted since construction.
func (b *CaptureBuffer) BytesBuffered() int64 {
	return b.bytes.Load()
}

// DroppedChunks reports how many chunks overflow has discarded.
func (b *CaptureBuffer) DroppedChunks() int64 {
	return b.dropped.Load()
}
