package googleSpeech

import (
	"github.com/akolanti/CSDAssistant/internal/config"
	"google.golang.org/api/option"
)

// clientOptions prefers the inline service account, then the file, then ADC.
func clientOptions(s config.Secrets) []option.ClientOption {
	switch {
	case len(s.ServiceAccountJSON) > 0:
		return []option.ClientOption{option.WithCredentialsJSON(s.ServiceAccountJSON)}
	case s.ServiceAccountFile != "":
		return []option.ClientOption{option.WithCredentialsFile(s.ServiceAccountFile)}
	default:
		return nil
	}
}
