// Package language classifies an utterance and selects the prompt and voice
// that belong to it. Prompt and voice only travel together inside a Profile.
package language

import (
	"strings"
	"sync"

	"github.com/akolanti/CSDAssistant/internal/rag/prompts"
	"github.com/pemistahl/lingua-go"
	lcprompts "github.com/tmc/langchaingo/prompts"
)

type Language int

const (
	Spanish Language = iota
	English
)

const Default = Spanish

type Voice struct {
	LanguageCode string
	Name         string
}

type Profile struct {
	Language      Language
	Prompt        lcprompts.PromptTemplate
	NoInfoMessage string
	Voice         Voice
}

var profiles = map[Language]Profile{
	Spanish: {
		Language:      Spanish,
		Prompt:        prompts.Spanish,
		NoInfoMessage: prompts.NoInfoSpanish,
		Voice:         Voice{LanguageCode: "es-US", Name: "es-US-Standard-B"},
	},
	English: {
		Language:      English,
		Prompt:        prompts.English,
		NoInfoMessage: prompts.NoInfoEnglish,
		Voice:         Voice{LanguageCode: "en-US", Name: "en-US-Standard-C"},
	},
}

var (
	detector     lingua.LanguageDetector
	detectorOnce sync.Once
)

func (l Language) Code() string {
	if l == English {
		return "en"
	}
	return "es"
}

func (l Language) String() string {
	if l == English {
		return "English"
	}
	return "Spanish"
}

// ProfileFor never returns a profile for an unsupported language.
func ProfileFor(l Language) Profile {
	p, ok := profiles[l]
	if !ok {
		return profiles[Default]
	}
	return p
}

// FromCode maps "en", "EN", "en-US" and friends; everything else is Default.
func FromCode(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "en":
		return English
	case "es":
		return Spanish
	default:
		return Default
	}
}

// Detect classifies text as Spanish or English, Default when undecidable.
func Detect(text string) Language {
	if strings.TrimSpace(text) == "" {
		return Default
	}
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Spanish, lingua.English).
			Build()
	})
	detected, exists := detector.DetectLanguageOf(text)
	if !exists {
		return Default
	}
	return FromCode(detected.IsoCode639_1().String())
}

// DetectProfile is Detect followed by ProfileFor.
func DetectProfile(text string) Profile {
	return ProfileFor(Detect(text))
}
