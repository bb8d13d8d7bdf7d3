package rag_test

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/rag/prompts"
)

// MockIndex implements vectorDB.Index
type MockIndex struct {
	OnSearch func(ctx context.Context, vector []float32, k int) ([]commonModels.SearchResult, error)
	OnUpsert func(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error
	OnReset  func(ctx context.Context) error
	Size     int
}

func (m *MockIndex) Search(ctx context.Context, v []float32, k int) ([]commonModels.SearchResult, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, v, k)
	}
	return []commonModels.SearchResult{{Chunk: commonModels.DocChunk{Chunk: "default context", PageNum: 1}, Score: 1}}, nil
}

func (m *MockIndex) Upsert(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	m.Size += len(chunks)
	if m.OnUpsert != nil {
		return m.OnUpsert(ctx, chunks, vectors)
	}
	return nil
}

func (m *MockIndex) Reset(ctx context.Context) error {
	m.Size = 0
	if m.OnReset != nil {
		return m.OnReset(ctx)
	}
	return nil
}

func (m *MockIndex) Count() int   { return m.Size }
func (m *MockIndex) Name() string { return "mock" }

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks)
	}
	// Return dummy vectors matching chunk size
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

// DefaultVocabulary groups words that mean the same thing in both languages.
var DefaultVocabulary = [][]string{
	{"rector", "principal", "headmaster"},
	{"coordinadora", "coordinador", "coordinator"},
	{"horario", "schedule", "hours"},
	{"uniforme", "uniform"},
	{"matrícula", "matricula", "enrollment", "tuition"},
	{"piscina", "pool"},
}

// KeywordEmbedder is a deterministic bag of words over Vocabulary, one
// dimension per synonym group plus a constant bias so no vector is zero.
type KeywordEmbedder struct {
	Vocabulary [][]string
}

func (k *KeywordEmbedder) vocabulary() [][]string {
	if k.Vocabulary == nil {
		return DefaultVocabulary
	}
	return k.Vocabulary
}

func (k *KeywordEmbedder) vector(text string) []float32 {
	vocab := k.vocabulary()
	v := make([]float32, len(vocab)+1)
	v[len(vocab)] = 0.1
	for _, g := range Groups(vocab, text) {
		v[g]++
	}
	return v
}

func (k *KeywordEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return k.vector(query), nil
}

func (k *KeywordEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = k.vector(c)
	}
	return vectors, nil
}

// Groups returns the vocabulary group of every known word in text.
func Groups(vocab [][]string, text string) []int {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var groups []int
	for _, w := range words {
		for g, synonyms := range vocab {
			for _, s := range synonyms {
				if w == s {
					groups = append(groups, g)
				}
			}
		}
	}
	return groups
}

// ReaderLLM answers both the extractor and the answer prompts by copying the
// context sentences that share a vocabulary group with the question.
type ReaderLLM struct {
	Vocabulary  [][]string
	Calls       atomic.Int32
	AnswerCalls atomic.Int32
}

func (r *ReaderLLM) Generate(ctx context.Context, prompt string) (string, error) {
	r.Calls.Add(1)
	vocab := r.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary
	}

	if strings.Contains(prompt, "Extracted relevant parts:") {
		question := between(prompt, "> Question: ", "\n")
		context := between(prompt, "> Context:\n>>>\n", "\n>>>")
		if found := matching(vocab, question, context); found != "" {
			return found, nil
		}
		return "NO_OUTPUT", nil
	}

	r.AnswerCalls.Add(1)
	context := between(prompt, "<context>", "</context>")
	if q := between(prompt, "Question: ", "\n"); q != "" {
		if found := matching(vocab, q, context); found != "" {
			return found, nil
		}
		return prompts.NoInfoEnglish, nil
	}
	q := between(prompt, "Pregunta: ", "\n")
	if found := matching(vocab, q, context); found != "" {
		return found, nil
	}
	return prompts.NoInfoSpanish, nil
}

func between(s, open, close string) string {
	i := strings.LastIndex(s, open)
	if i < 0 {
		return ""
	}
	rest := s[i+len(open):]
	if j := strings.Index(rest, close); j >= 0 {
		return rest[:j]
	}
	return rest
}

func matching(vocab [][]string, question, context string) string {
	wanted := map[int]bool{}
	for _, g := range Groups(vocab, question) {
		wanted[g] = true
	}
	if len(wanted) == 0 {
		return ""
	}
	var found []string
	for _, sentence := range strings.Split(context, ".") {
		for _, g := range Groups(vocab, sentence) {
			if wanted[g] {
				found = append(found, strings.TrimSpace(sentence)+".")
				break
			}
		}
	}
	return strings.Join(found, " ")
}
