package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV renders the utterance as a complete in-memory WAV file.
func (u Utterance) WAV() ([]byte, error) {
	return EncodePCM16WAV(u.PCM, u.Format)
}

// EncodePCM16WAV wraps raw little-endian s16 PCM in a WAV container.
func EncodePCM16WAV(pcm []byte, format Format) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm payload not 16-bit aligned (%d bytes)", len(pcm))
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}

	sink := &seekBuffer{}
	enc := wav.NewEncoder(sink, format.SampleRate, format.BitsPerSample, format.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return sink.Bytes(), nil
}

// seekBuffer adapts an in-memory byte slice to the io.WriteSeeker the wav
// encoder needs for header back-patching.
type seekBuffer struct {
	buf bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if extra := s.pos - s.buf.Len(); extra > 0 {
		s.buf.Write(make([]byte, extra))
	}
	if s.pos < s.buf.Len() {
		n := copy(s.buf.Bytes()[s.pos:], p)
		if n < len(p) {
			s.buf.Write(p[n:])
		}
	} else {
		s.buf.Write(p)
	}
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = s.pos + int(offset)
	case io.SeekEnd:
		next = s.buf.Len() + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	s.pos = next
	return int64(next), nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf.Bytes()
}
