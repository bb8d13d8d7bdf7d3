// Package speech defines the voice round trip of a turn: recognition before
// language detection and synthesis after generation.
package speech

import (
	"context"
	"errors"

	"github.com/akolanti/CSDAssistant/internal/language"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotUnderstood means the service heard nothing it could transcribe.
	ErrNotUnderstood = errors.New("could not understand the audio")
	// ErrUnavailable means voice features are disabled for this process.
	ErrUnavailable = errors.New("speech service unavailable")
)

type Transcript struct {
	Text         string
	LanguageCode string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice language.Voice) ([]byte, error)
}

type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte) (Transcript, error)
}

// Warning turns a speech error into the inline message shown for the turn.
func Warning(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotUnderstood):
		return "No pude entender el audio. Por favor, intenta de nuevo."
	case errors.Is(err, ErrUnavailable):
		return "Las funciones de voz no están disponibles en este momento."
	case errors.Is(err, context.DeadlineExceeded):
		return "El servicio de voz tardó demasiado en responder."
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted:
			return "Se agotó la cuota del servicio de voz. Intenta más tarde."
		case codes.Unauthenticated, codes.PermissionDenied:
			return "Las credenciales del servicio de voz no son válidas."
		case codes.DeadlineExceeded:
			return "El servicio de voz tardó demasiado en responder."
		case codes.InvalidArgument:
			return "El formato del audio no es válido."
		}
	}
	return "Ocurrió un error con el servicio de voz."
}
