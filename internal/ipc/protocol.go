// Package ipc implements the single-owner control protocol: the first
// murmur process owns the runtime socket and runs the dictation session;
// later invocations forward commands to it as newline-delimited JSON.
package ipc

// Wire commands accepted by the session owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
)

// Request is one forwarded command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the owner's session state alongside the command outcome.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
