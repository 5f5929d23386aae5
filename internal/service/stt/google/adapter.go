// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode    string // BCP-47 code used when the caller passes a bare language
	SampleRateHz    int32  // 0 reads the rate from the WAV header
	AudioEncoding   string // empty reads the encoding from the WAV header
	CredentialsFile string
}

// DefaultConfig returns settings for IVR WAV recordings.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "he-IL",
	}
}

// recognizer is the subset of *speech.Client used by the adapter.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// Adapter implements stt.Adapter using synchronous Google recognition.
type Adapter struct {
	client recognizer
	closer func() error
	cfg    Config
}

// New creates a new Google STT adapter. Without a credentials file the
// client uses Application Default Credentials.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google stt: %w", err)
	}
	return &Adapter{client: c, closer: c.Close, cfg: cfg}, nil
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string { return "google" }

// Transcribe sends the recording for synchronous recognition and joins the
// top alternative of every result.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz: a.cfg.SampleRateHz,
			LanguageCode:    a.languageCode(language),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google stt: %w", err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

// languageCode returns language when it already carries a region, otherwise
// the configured default.
func (a *Adapter) languageCode(language string) string {
	if strings.Contains(language, "-") {
		return language
	}
	if a.cfg.LanguageCode != "" {
		return a.cfg.LanguageCode
	}
	return language
}

// parseAudioEncoding maps a config string to the proto enum. Unknown values
// leave the encoding unspecified so it is read from the WAV header.
func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MP3":
		return speechpb.RecognitionConfig_MP3
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
