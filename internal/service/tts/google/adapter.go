// Package google provides a Google Cloud Text-to-Speech adapter.
package google

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"ivr-voice-bridge-service/internal/service/tts"
)

// Config holds voice selection settings.
type Config struct {
	LanguageCode    string
	VoiceName       string // optional, overrides gender-based selection
	VoiceGender     string // MALE, FEMALE, NEUTRAL
	SpeakingRate    float64
	CredentialsFile string
}

// DefaultConfig returns the Hebrew female voice.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "he-IL",
		VoiceGender:  "FEMALE",
	}
}

// synthesizer is the subset of *texttospeech.Client used by the adapter.
type synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Adapter implements tts.Adapter.
type Adapter struct {
	client synthesizer
	closer func() error
	cfg    Config
}

// New creates a new Google TTS adapter. Without a credentials file the
// client uses Application Default Credentials.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	return &Adapter{client: c, closer: c.Close, cfg: cfg}, nil
}

// Name implements tts.Adapter.
func (a *Adapter) Name() string { return "google" }

// Synthesize implements tts.Adapter.
func (a *Adapter) Synthesize(ctx context.Context, text string, enc tts.Encoding) ([]byte, error) {
	resp, err := a.client.SynthesizeSpeech(ctx, a.request(text, enc))
	if err != nil {
		return nil, fmt.Errorf("google tts %s: %w", enc, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("google tts %s: %w", enc, tts.ErrEmptyAudio)
	}
	return resp.GetAudioContent(), nil
}

func (a *Adapter) request(text string, enc tts.Encoding) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: a.cfg.LanguageCode,
			Name:         a.cfg.VoiceName,
			SsmlGender:   parseGender(a.cfg.VoiceGender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: audioEncoding(enc),
			SpeakingRate:  a.cfg.SpeakingRate,
		},
	}
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

func audioEncoding(enc tts.Encoding) texttospeechpb.AudioEncoding {
	if enc == tts.EncodingLinear16 {
		return texttospeechpb.AudioEncoding_LINEAR16
	}
	return texttospeechpb.AudioEncoding_MP3
}

func parseGender(s string) texttospeechpb.SsmlVoiceGender {
	switch strings.ToUpper(s) {
	case "MALE":
		return texttospeechpb.SsmlVoiceGender_MALE
	case "FEMALE":
		return texttospeechpb.SsmlVoiceGender_FEMALE
	case "NEUTRAL":
		return texttospeechpb.SsmlVoiceGender_NEUTRAL
	default:
		return texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED
	}
}
