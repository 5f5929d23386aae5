package tts

import (
	"errors"
	"testing"
)

func TestEncoding_String(t *testing.T) {
	tests := []struct {
		enc      Encoding
		expected string
		ext      string
	}{
		{EncodingMP3, "MP3", "mp3"},
		{EncodingLinear16, "LINEAR16", "wav"},
		{Encoding(7), "UNKNOWN(7)", "bin"},
	}

	for _, tt := range tests {
		if got := tt.enc.String(); got != tt.expected {
			t.Errorf("Encoding(%d).String() = %v, want %v", tt.enc, got, tt.expected)
		}
		if got := tt.enc.Extension(); got != tt.ext {
			t.Errorf("Encoding(%d).Extension() = %v, want %v", tt.enc, got, tt.ext)
		}
	}
}

func TestMP3Duration_Empty(t *testing.T) {
	if _, err := MP3Duration(nil); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestMP3Duration_NotMP3(t *testing.T) {
	if _, err := MP3Duration([]byte("RIFF....WAVEfmt ")); err == nil {
		t.Error("expected decode error for non-MP3 data")
	}
}
