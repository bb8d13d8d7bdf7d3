package googleSpeech

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/speech"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

// the service rejects longer inputs
const maxSynthesisBytes = 5000

var ttsLogger *logger_i.Logger
var ttsOnce sync.Once
var ttsInstance *texttospeech.Client

// TTS is safe to use when nil; every call then returns speech.ErrUnavailable.
type TTS struct {
	client *texttospeech.Client
}

func GetTTSClient(ctx context.Context, secrets config.Secrets) *TTS {
	ttsOnce.Do(func() {
		ttsLogger = logger_i.NewLogger("google_tts")
		c, err := texttospeech.NewClient(ctx, clientOptions(secrets)...)
		if err != nil {
			ttsLogger.Error("could not create text to speech client, voice output disabled", "error", err)
			return
		}
		ttsInstance = c
		ttsLogger.Info("Text to speech client created")
		go func() {
			<-ctx.Done()
			ttsLogger.Info("Closing text to speech client")
			_ = c.Close()
		}()
	})

	if ttsInstance == nil {
		return nil
	}
	return &TTS{client: ttsInstance}
}

// Synthesize returns MP3 audio of text read with voice.
func (t *TTS) Synthesize(ctx context.Context, text string, voice language.Voice) ([]byte, error) {
	if t == nil || t.client == nil {
		return nil, speech.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, config.TTSTimeout)
	defer cancel()

	start := time.Now()
	resp, err := t.client.SynthesizeSpeech(ctx, synthesisRequest(text, voice))
	metrics.CaptureExecutionMetrics("tts", time.Since(start))
	if err != nil {
		ttsLogger.WithTrace(ctx).Error("speech synthesis failed", "voice", voice.Name, "error", err)
		return nil, err
	}
	return resp.GetAudioContent(), nil
}

func synthesisRequest(text string, voice language.Voice) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: speakable(text)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}

var markdownMarks = strings.NewReplacer("**", "", "__", "", "`", "", "#", "", "* ", "", "- ", "")

// speakable drops markdown marks that would be read aloud and trims to the
// request limit on a rune boundary.
func speakable(text string) string {
	text = strings.TrimSpace(markdownMarks.Replace(text))
	if len(text) <= maxSynthesisBytes {
		return text
	}
	cut := maxSynthesisBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
