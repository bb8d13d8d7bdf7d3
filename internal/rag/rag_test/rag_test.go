package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/rag"
	"github.com/akolanti/CSDAssistant/internal/rag/ingest"
	"github.com/akolanti/CSDAssistant/internal/rag/prompts"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB/chromemDB"
)

const schoolDocument = `Manual de convivencia del Colegio Santo Domingo.

El rector es Juan Pérez. La coordinadora académica es María Gómez.

El horario de clases es de 7:00 a 14:00. El uniforme es obligatorio todos los días.`

func TestAnswer_Scenarios(t *testing.T) {
	spanish := language.ProfileFor(language.Spanish)

	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder, v *MockIndex, l *MockLLM)
		expectedAnswer string
		expectedStep   string
		expectedPages  []int
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(e *MockEmbedder, v *MockIndex, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, vec []float32, k int) ([]commonModels.SearchResult, error) {
					return []commonModels.SearchResult{
						{Chunk: commonModels.DocChunk{Chunk: "El rector es Juan Pérez.", PageNum: 2}, Score: 0.9},
						{Chunk: commonModels.DocChunk{Chunk: "Otro fragmento.", PageNum: 1}, Score: 0.5},
						{Chunk: commonModels.DocChunk{Chunk: "Más del rector.", PageNum: 2}, Score: 0.4},
					}, nil
				}
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					if !strings.Contains(prompt, "El rector es Juan Pérez.\n\nOtro fragmento.") {
						return "", errors.New("context missing from prompt")
					}
					return "El rector es Juan Pérez.", nil
				}
			},
			expectedAnswer: "El rector es Juan Pérez.",
			expectedPages:  []int{1, 2},
		},
		{
			name: "No_Passages_Admits",
			setupMocks: func(e *MockEmbedder, v *MockIndex, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, vec []float32, k int) ([]commonModels.SearchResult, error) {
					return nil, nil
				}
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					return "", errors.New("generation should not run")
				}
			},
			expectedAnswer: prompts.NoInfoSpanish,
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(e *MockEmbedder, v *MockIndex, l *MockLLM) {
				e.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStep: rag.StepRetrieval,
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(e *MockEmbedder, v *MockIndex, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, vec []float32, k int) ([]commonModels.SearchResult, error) {
					return nil, errors.New("db timeout")
				}
			},
			expectedStep: rag.StepRetrieval,
		},
		{
			name: "Failure_LLM_Generation",
			setupMocks: func(e *MockEmbedder, v *MockIndex, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, prompt string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			expectedStep: rag.StepGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, v, l := &MockEmbedder{}, &MockIndex{}, &MockLLM{}
			tt.setupMocks(e, v, l)

			svc := rag.NewService(v, l, e, false)
			ans, err := svc.Answer(context.Background(), "¿Quién es el rector?", spanish)

			if tt.expectedStep != "" {
				var stepErr *rag.StepError
				if !errors.As(err, &stepErr) || stepErr.Step != tt.expectedStep {
					t.Fatalf("Expected step %s, got %v", tt.expectedStep, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Answer failed: %v", err)
			}
			if ans.Text != tt.expectedAnswer {
				t.Errorf("Expected answer %q, got %q", tt.expectedAnswer, ans.Text)
			}
			if len(ans.Pages) != len(tt.expectedPages) {
				t.Fatalf("Expected pages %v, got %v", tt.expectedPages, ans.Pages)
			}
			for i := range ans.Pages {
				if ans.Pages[i] != tt.expectedPages[i] {
					t.Errorf("Expected pages %v, got %v", tt.expectedPages, ans.Pages)
				}
			}
		})
	}
}

func TestIngestDocument_Failures(t *testing.T) {
	svc := rag.NewService(&MockIndex{}, &MockLLM{}, &MockEmbedder{}, false)
	_, err := svc.IngestDocument(context.Background(), filepath.Join(t.TempDir(), "documento.pdf"))
	if !errors.Is(err, ingest.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}

	path := writeDocument(t)
	failing := &MockEmbedder{OnBatchEmbedding: func(ctx context.Context, chunks []string) ([][]float32, error) {
		return nil, errors.New("service unreachable")
	}}
	if _, err := rag.NewService(&MockIndex{}, &MockLLM{}, failing, false).IngestDocument(context.Background(), path); err == nil {
		t.Error("Expected embedding failure to abort ingestion")
	}
}

func TestPipeline_OverRealIndex(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "direct"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			index, err := chromemDB.NewIndex("pipeline")
			if err != nil {
				t.Fatal(err)
			}
			reader := &ReaderLLM{}
			svc := rag.NewService(index, reader, &KeywordEmbedder{}, compress)

			stats, err := svc.IngestDocument(context.Background(), writeDocument(t))
			if err != nil {
				t.Fatalf("IngestDocument failed: %v", err)
			}
			if stats.Chunks == 0 || index.Count() != stats.Chunks {
				t.Fatalf("index holds %d chunks, stats say %d", index.Count(), stats.Chunks)
			}

			es, err := svc.Answer(context.Background(), "¿Quién es el rector?", language.ProfileFor(language.Spanish))
			if err != nil || !strings.Contains(es.Text, "Juan Pérez") {
				t.Errorf("Spanish answer got %q, %v", es.Text, err)
			}
			if es.Compressed != compress {
				t.Errorf("Compressed got %v", es.Compressed)
			}

			en, err := svc.Answer(context.Background(), "Who is the principal?", language.ProfileFor(language.English))
			if err != nil || !strings.Contains(en.Text, "Juan Pérez") {
				t.Errorf("English answer got %q, %v", en.Text, err)
			}

			none, err := svc.Answer(context.Background(), "¿Tienen piscina?", language.ProfileFor(language.Spanish))
			if err != nil || none.Text != prompts.NoInfoSpanish {
				t.Errorf("Missing info answer got %q, %v", none.Text, err)
			}
		})
	}
}

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documento.txt")
	if err := os.WriteFile(path, []byte(schoolDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReaderLLM_ExtractsFromCompressionPrompt(t *testing.T) {
	reader := &ReaderLLM{}
	tests := []struct {
		name     string
		question string
		context  string
		want     string
	}{
		{"relevant", "¿Quién es el rector?", "El rector es Juan Pérez.", "Juan Pérez"},
		{"english question", "Who is the principal?", "El rector es Juan Pérez.", "Juan Pérez"},
		{"irrelevant", "¿Quién es el rector?", "El uniforme es obligatorio todos los días.", "NO_OUTPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := prompts.Render(prompts.Compression, tt.context, tt.question)
			if err != nil {
				t.Fatal(err)
			}
			got, err := reader.Generate(context.Background(), prompt)
			if err != nil || !strings.Contains(got, tt.want) {
				t.Errorf("Generate got %q, %v; want it to contain %q", got, err, tt.want)
			}
		})
	}
}
