package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeRecognizer(t *testing.T, body string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-stt.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return "sh " + script
}

func TestLocalRecognizerSuccess(t *testing.T) {
	cmd := writeFakeRecognizer(t, `printf '{"text": "local hello", "confidence": 0.92}'`)
	r, err := NewLocalRecognizer(cmd, "", "")
	require.NoError(t, err)

	text, err := r.Transcribe(context.Background(), testUtterance(3200))
	require.NoError(t, err)
	assert.Equal(t, "local hello", text)
}

func TestLocalRecognizerMissingBinaryIsTransient(t *testing.T) {
	r, err := NewLocalRecognizer("/nonexistent/murmur-stt", "", "")
	require.NoError(t, err)

	_, err = r.Transcribe(context.Background(), testUtterance(3200))
	require.Error(t, err)
	assert.True(t, IsCloudFallbackEligible(err))
}

func TestLocalRecognizerBadOutputIsTransient(t *testing.T) {
	cmd := writeFakeRecognizer(t, `printf 'not json at all'`)
	r, err := NewLocalRecognizer(cmd, "", "")
	require.NoError(t, err)

	_, err = r.Transcribe(context.Background(), testUtterance(3200))
	require.Error(t, err)
	assert.True(t, IsCloudFallbackEligible(err))
}

func TestLocalRecognizerMissingTextField(t *testing.T) {
	cmd := writeFakeRecognizer(t, `printf '{"confidence": 0.5}'`)
	r, err := NewLocalRecognizer(cmd, "", "")
	require.NoError(t, err)

	_, err = r.Transcribe(context.Background(), testUtterance(3200))
	require.Error(t, err)
	assert.True(t, IsCloudFallbackEligible(err))
}

func TestNewLocalRecognizerRejectsEmptyCommand(t *testing.T) {
	_, err := NewLocalRecognizer("", "", "")
	assert.Error(t, err)

	_, err = NewLocalRecognizer(`unterminated "quote`, "", "")
	assert.Error(t, err)
}
