// Package speech turns recorded audio into keyword text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

var (
	// ErrNoSpeech is returned when the recognizer heard nothing usable.
	ErrNoSpeech = errors.New("speech: no speech recognized")
	// ErrNotConfigured is returned when speech capture is disabled or absent.
	ErrNotConfigured = errors.New("speech: transcription not configured")
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopTranscriber is used when speech capture is disabled.
type NoopTranscriber struct{}

func (NoopTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return "", ErrNotConfigured
}

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

type GoogleOptions struct {
	Language        string
	SampleRate      int
	CredentialsFile string
}

// GoogleTranscriber uses Cloud Speech-to-Text synchronous recognition.
type GoogleTranscriber struct {
	client     recognizer
	language   string
	sampleRate int
}

func NewGoogleTranscriber(ctx context.Context, opts GoogleOptions) (*GoogleTranscriber, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := speechapi.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("speech: create client: %w", err)
	}
	return newGoogleTranscriber(client, opts), nil
}

func newGoogleTranscriber(client recognizer, opts GoogleOptions) *GoogleTranscriber {
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = "en-US"
	}
	rate := opts.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return &GoogleTranscriber{client: client, language: lang, sampleRate: rate}
}

// Transcribe accepts raw 16-bit little endian PCM or a PCM WAV file. The sample
// rate in a WAV header wins over the configured one.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoSpeech
	}
	pcm, rate := audio, g.sampleRate
	if wav, err := DecodeWAV(audio); err == nil {
		pcm, rate = wav.PCM, wav.SampleRate
	} else if !errors.Is(err, ErrNotWAV) {
		return "", err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(rate),
			LanguageCode:    g.language,
			MaxAlternatives: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech: recognize: %w", err)
	}
	return transcript(resp)
}

func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

// transcript joins the top alternative of every result.
func transcript(resp *speechpb.RecognizeResponse) (string, error) {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

var (
	_ Transcriber = (*GoogleTranscriber)(nil)
	_ Transcriber = NoopTranscriber{}
)
