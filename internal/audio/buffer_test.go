package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDrainPreservesAppendOrder(t *testing.T) {
	buf := NewCaptureBuffer(DefaultFormat, 16, nil)

	chunks := [][]byte{
		{0x01, 0x02},
		{0x03, 0x04, 0x05, 0x06},
		{0x07, 0x08},
	}
	var want []byte
	for _, chunk := range chunks {
		buf.Append(chunk)
		want = append(want, chunk...)
	}

	utt := buf.Drain()
	require.True(t, bytes.Equal(want, utt.PCM))
	require.Equal(t, len(chunks), utt.Chunks)
	require.Equal(t, 0, utt.Dropped)
	require.Equal(t, DefaultFormat, utt.Format)
}

func TestAppendCopiesCallerBuffer(t *testing.T) {
	buf := NewCaptureBuffer(DefaultFormat, 4, nil)

	reused := []byte{0xAA, 0xBB}
	buf.Append(reused)
	reused[0] = 0x00
	reused[1] = 0x00

	utt := buf.Drain()
	require.Equal(t, []byte{0xAA, 0xBB}, utt.PCM)
}

func TestAppendDropsOnOverflowAndSignals(t *testing.T) {
	var signalled []error
	buf := NewCaptureBuffer(DefaultFormat, 2, func(err error) {
		signalled = append(signalled, err)
	})

	buf.Append([]byte{1})
	buf.Append([]byte{2})
	buf.Append([]byte{3}) // over capacity, dropped
	buf.Append([]byte{4}) // dropped

	require.EqualValues(t, 2, buf.DroppedChunks())
	require.Len(t, signalled, 2)

	var capErr CaptureError
	require.ErrorAs(t, signalled[1], &capErr)
	require.EqualValues(t, 2, capErr.Dropped)

	utt := buf.Drain()
	require.Equal(t, []byte{1, 2}, utt.PCM)
	require.Equal(t, 2, utt.Dropped)
}

func TestClearDiscardsWithoutAssembling(t *testing.T) {
	buf := NewCaptureBuffer(DefaultFormat, 8, nil)
	buf.Append([]byte{1, 2})
	buf.Append([]byte{3, 4})

	require.Equal(t, 2, buf.Clear())

	utt := buf.Drain()
	require.Empty(t, utt.PCM)
	require.Zero(t, utt.Chunks)
}

func TestUtteranceDuration(t *testing.T) {
	utt := Utterance{
		PCM:    make([]byte, 64000), // 2s @ 16kHz mono s16
		Format: DefaultFormat,
	}
	require.Equal(t, 2.0, utt.Duration().Seconds())
}
