package google

import (
	"context"
	"errors"
	"testing"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"ivr-voice-bridge-service/internal/service/tts"
)

type fakeSynthesizer struct {
	reqs  []*texttospeechpb.SynthesizeSpeechRequest
	audio []byte
	err   error
}

var _ synthesizer = (*texttospeech.Client)(nil)

func (f *fakeSynthesizer) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.audio}, nil
}

func TestAdapter_Synthesize(t *testing.T) {
	fake := &fakeSynthesizer{audio: []byte("audio")}
	a := &Adapter{client: fake, cfg: DefaultConfig()}

	for _, enc := range []tts.Encoding{tts.EncodingMP3, tts.EncodingLinear16} {
		got, err := a.Synthesize(context.Background(), "שלום", enc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", enc, err)
		}
		if string(got) != "audio" {
			t.Errorf("%s: unexpected audio %q", enc, got)
		}
	}

	if len(fake.reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(fake.reqs))
	}
	if fake.reqs[0].GetAudioConfig().GetAudioEncoding() != texttospeechpb.AudioEncoding_MP3 {
		t.Errorf("expected MP3 first, got %v", fake.reqs[0].GetAudioConfig().GetAudioEncoding())
	}
	if fake.reqs[1].GetAudioConfig().GetAudioEncoding() != texttospeechpb.AudioEncoding_LINEAR16 {
		t.Errorf("expected LINEAR16 second, got %v", fake.reqs[1].GetAudioConfig().GetAudioEncoding())
	}

	voice := fake.reqs[0].GetVoice()
	if voice.GetLanguageCode() != "he-IL" {
		t.Errorf("expected he-IL, got %s", voice.GetLanguageCode())
	}
	if voice.GetSsmlGender() != texttospeechpb.SsmlVoiceGender_FEMALE {
		t.Errorf("expected FEMALE, got %v", voice.GetSsmlGender())
	}
	if fake.reqs[0].GetInput().GetText() != "שלום" {
		t.Errorf("expected input text, got %q", fake.reqs[0].GetInput().GetText())
	}
}

func TestAdapter_Synthesize_Errors(t *testing.T) {
	boom := errors.New("permission denied")
	a := &Adapter{client: &fakeSynthesizer{err: boom}, cfg: DefaultConfig()}
	if _, err := a.Synthesize(context.Background(), "x", tts.EncodingMP3); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}

	a = &Adapter{client: &fakeSynthesizer{}, cfg: DefaultConfig()}
	if _, err := a.Synthesize(context.Background(), "x", tts.EncodingMP3); !errors.Is(err, tts.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		input    string
		expected texttospeechpb.SsmlVoiceGender
	}{
		{"FEMALE", texttospeechpb.SsmlVoiceGender_FEMALE},
		{"female", texttospeechpb.SsmlVoiceGender_FEMALE},
		{"MALE", texttospeechpb.SsmlVoiceGender_MALE},
		{"NEUTRAL", texttospeechpb.SsmlVoiceGender_NEUTRAL},
		{"", texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseGender(tt.input); got != tt.expected {
				t.Errorf("parseGender(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
