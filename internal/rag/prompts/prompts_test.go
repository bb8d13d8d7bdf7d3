package prompts

import (
	"strings"
	"testing"

	"github.com/tmc/langchaingo/prompts"
)

func TestRender_FillsPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template prompts.PromptTemplate
		noInfo   string
	}{
		{"spanish", Spanish, NoInfoSpanish},
		{"english", English, NoInfoEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(tt.template, "El rector es Juan Pérez", "¿Quién es el rector?")
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.Contains(out, "<context>El rector es Juan Pérez</context>") {
				t.Errorf("context not rendered: %s", out)
			}
			if !strings.Contains(out, "¿Quién es el rector?") {
				t.Error("question not rendered")
			}
			if !strings.Contains(out, tt.noInfo) {
				t.Error("no-information admission missing from prompt")
			}
			if strings.Contains(out, "{{") {
				t.Error("unrendered placeholder left in prompt")
			}
		})
	}
}

func TestTemplates_KeepCriticalInstructions(t *testing.T) {
	spanish, _ := Render(Spanish, "", "")
	for _, want := range []string{"TODO el contexto", "exhaustiva", "\"quién\"", "Nunca inventes"} {
		if !strings.Contains(spanish, want) {
			t.Errorf("spanish prompt lost %q", want)
		}
	}
	english, _ := Render(English, "", "")
	for _, want := range []string{"ALL of the provided context", "exhaustively", "\"who\"", "Never make up"} {
		if !strings.Contains(english, want) {
			t.Errorf("english prompt lost %q", want)
		}
	}
}

func TestCompression_MentionsNoOutput(t *testing.T) {
	out, err := Render(Compression, "chunk text", "question text")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "NO_OUTPUT") || !strings.Contains(out, "chunk text") {
		t.Errorf("unexpected compression prompt: %s", out)
	}
}
