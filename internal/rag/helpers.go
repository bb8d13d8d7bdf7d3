package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding"
	"github.com/akolanti/CSDAssistant/internal/rag/prompts"
	"github.com/akolanti/CSDAssistant/internal/rag/retriever"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

const (
	StepRetrieval  = "RETRIEVAL_FAILURE"
	StepGeneration = "LLM_GENERATION_FAILURE"
	StepIngestion  = "INGESTION_FAILURE"
)

// StepError names the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func wrapStep(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// Searcher embeds the query text and searches the index with it.
type Searcher struct {
	embedder embedding.Embedder
	index    vectorDB.Index
}

func NewSearcher(e embedding.Embedder, index vectorDB.Index) *Searcher {
	return &Searcher{embedder: e, index: index}
}

func (s *Searcher) Search(ctx context.Context, query string, k int) ([]commonModels.SearchResult, error) {
	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return s.index.Search(ctx, vector, k)
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, question string) ([]retriever.Passage, bool, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	passages, compressed, err := s.retriever.Retrieve(ctx, question)
	log.Debug("retrieval done", "passages", len(passages), "compressed", compressed)
	return passages, compressed, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, profile language.Profile, question string, passages []retriever.Passage) (string, error) {
	prompt, err := prompts.Render(profile.Prompt, retriever.JoinPassages(passages), question)
	if err != nil {
		return "", err
	}
	log.Debug("prompt rendered", "bytes", len(prompt))
	return s.llmProvider.Generate(ctx, prompt)
}

func sourcePages(passages []retriever.Passage) []int {
	seen := make(map[int]bool, len(passages))
	pages := make([]int, 0, len(passages))
	for _, p := range passages {
		if p.Page > 0 && !seen[p.Page] {
			seen[p.Page] = true
			pages = append(pages, p.Page)
		}
	}
	sort.Ints(pages)
	return pages
}
