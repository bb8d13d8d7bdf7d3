package googleSpeech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/speech"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var sttLogger *logger_i.Logger
var sttOnce sync.Once
var sttInstance *gspeech.Client

// STT is safe to use when nil; every call then returns speech.ErrUnavailable.
type STT struct {
	client *gspeech.Client
}

func GetSTTClient(ctx context.Context, secrets config.Secrets) *STT {
	sttOnce.Do(func() {
		sttLogger = logger_i.NewLogger("google_stt")
		c, err := gspeech.NewClient(ctx, clientOptions(secrets)...)
		if err != nil {
			sttLogger.Error("could not create speech to text client, voice input disabled", "error", err)
			return
		}
		sttInstance = c
		sttLogger.Info("Speech to text client created")
		go func() {
			<-ctx.Done()
			sttLogger.Info("Closing speech to text client")
			_ = c.Close()
		}()
	})

	if sttInstance == nil {
		return nil
	}
	return &STT{client: sttInstance}
}

// Transcribe accepts a 16 bit mono WAV file or raw LINEAR16 at 16 kHz.
func (s *STT) Transcribe(ctx context.Context, audio []byte) (speech.Transcript, error) {
	if s == nil || s.client == nil {
		return speech.Transcript{}, speech.ErrUnavailable
	}
	pcm, err := decodeAudio(audio)
	if err != nil {
		return speech.Transcript{}, err
	}
	if len(pcm.Data) == 0 {
		return speech.Transcript{}, speech.ErrNotUnderstood
	}

	ctx, cancel := context.WithTimeout(ctx, config.STTTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Recognize(ctx, recognizeRequest(pcm))
	metrics.CaptureExecutionMetrics("stt", time.Since(start))
	if err != nil {
		sttLogger.WithTrace(ctx).Error("speech recognition failed", "error", err)
		return speech.Transcript{}, err
	}
	return firstTranscript(resp)
}

func recognizeRequest(pcm pcmAudio) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            pcm.SampleRate,
			AudioChannelCount:          pcm.Channels,
			LanguageCode:               config.STTPrimaryLanguage,
			AlternativeLanguageCodes:   []string{config.STTAlternateLanguage},
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm.Data},
		},
	}
}

// firstTranscript takes the top alternative of the top result.
func firstTranscript(resp *speechpb.RecognizeResponse) (speech.Transcript, error) {
	results := resp.GetResults()
	if len(results) == 0 {
		return speech.Transcript{}, speech.ErrNotUnderstood
	}
	alternatives := results[0].GetAlternatives()
	if len(alternatives) == 0 {
		return speech.Transcript{}, speech.ErrNotUnderstood
	}
	text := strings.TrimSpace(alternatives[0].GetTranscript())
	if text == "" {
		return speech.Transcript{}, fmt.Errorf("blank transcript: %w", speech.ErrNotUnderstood)
	}
	return speech.Transcript{Text: text, LanguageCode: results[0].GetLanguageCode()}, nil
}
