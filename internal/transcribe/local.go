package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/nvander/murmur/internal/audio"
)

// LocalRecognizer shells out to an on-device speech model. The subprocess
// receives a temp WAV path and prints a JSON result on stdout.
type LocalRecognizer struct {
	mu        sync.Mutex
	cmd       []string
	modelPath string
	language  string
}

type localResult struct {
	Text       *string `json:"text"`
	Confidence float64 `json:"confidence"`
}

// NewLocalRecognizer parses the configured command line into argv form.
func NewLocalRecognizer(command, modelPath, language string) (*LocalRecognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse local transcription command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("local transcription command is empty")
	}
	return &LocalRecognizer{cmd: args, modelPath: modelPath, language: language}, nil
}

// Transcribe writes the utterance to a temp WAV, runs the recognizer, and
// decodes its stdout. Failures come back as *LocalError; transient ones
// (missing binary, crash, malformed output) are eligible for cloud fallback.
func (r *LocalRecognizer) Transcribe(ctx context.Context, utt audio.Utterance) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wavBytes, err := utt.WAV()
	if err != nil {
		return "", &LocalError{Err: fmt.Errorf("encode utterance: %w", err)}
	}

	file, err := os.CreateTemp(os.TempDir(), "murmur_stt_*.wav")
	if err != nil {
		return "", &LocalError{Transient: true, Err: fmt.Errorf("temp file: %w", err)}
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if _, err := file.Write(wavBytes); err != nil {
		return "", &LocalError{Transient: true, Err: fmt.Errorf("write temp wav: %w", err)}
	}

	base := r.cmd[0]
	args := append([]string{}, r.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if r.modelPath != "" {
		args = append(args, "--model", r.modelPath)
	}
	if r.language != "" {
		args = append(args, "--language", r.language)
	}

	command := exec.CommandContext(ctx, base, args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return "", &LocalError{Err: ctx.Err()}
		}
		return "", &LocalError{
			Transient: true,
			Err:       fmt.Errorf("recognizer command failed: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	var resp localResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", &LocalError{Transient: true, Err: fmt.Errorf("decode recognizer output: %w", err)}
	}
	if resp.Text == nil {
		return "", &LocalError{Transient: true, Err: ErrInvalidModelResponse}
	}
	return *resp.Text, nil
}
