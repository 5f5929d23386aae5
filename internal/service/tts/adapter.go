// Package tts defines the interface for speech synthesis adapters.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hajimehoshi/go-mp3"
)

// Encoding selects the synthesized audio container.
type Encoding int

const (
	// EncodingMP3 - MPEG layer 3, uploaded as <base>.mp3.
	EncodingMP3 Encoding = iota
	// EncodingLinear16 - 16-bit PCM in a WAV container, uploaded as <base>.wav.
	EncodingLinear16
)

// String returns the string representation of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingMP3:
		return "MP3"
	case EncodingLinear16:
		return "LINEAR16"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(e))
	}
}

// Extension returns the file extension for the encoding, without the dot.
func (e Encoding) Extension() string {
	switch e {
	case EncodingMP3:
		return "mp3"
	case EncodingLinear16:
		return "wav"
	default:
		return "bin"
	}
}

// Adapter defines the interface for TTS providers.
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Synthesize converts text to audio in the requested encoding.
	Synthesize(ctx context.Context, text string, enc Encoding) ([]byte, error)
}

var ErrEmptyAudio = errors.New("tts: empty audio")

// MP3Duration decodes an MP3 stream and returns its playback length in
// seconds. The decoder always emits 16-bit stereo, so one sample frame is
// four bytes.
func MP3Duration(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyAudio
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("tts: decode mp3: %w", err)
	}
	if dec.SampleRate() <= 0 || dec.Length() <= 0 {
		return 0, nil
	}
	return float64(dec.Length()) / float64(4*dec.SampleRate()), nil
}
