package transcribe

// Progress percentage points reported over one transcription lifecycle.
const (
	ProgressRequestBuilt     = 25
	ProgressResponseReceived = 80
	ProgressParsed           = 100
)

// Observer receives transcription lifecycle events. Implementations must be
// fast; callbacks run on the transcribing goroutine.
type Observer interface {
	TranscriptionStarted(requestID string)
	TranscriptionProgress(requestID string, percent int)
	TranscriptionCompleted(requestID string, text string)
	TranscriptionFailed(requestID string, err error)
}

// NopObserver ignores all lifecycle events.
type NopObserver struct{}

func (NopObserver) TranscriptionStarted(string)           {}
func (NopObserver) TranscriptionProgress(string, int)     {}
func (NopObserver) TranscriptionCompleted(string, string) {}
func (NopObserver) TranscriptionFailed(string, error)     {}
