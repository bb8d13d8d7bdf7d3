package rag

import (
	"context"
	"time"

	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding"
	"github.com/akolanti/CSDAssistant/internal/rag/ingest"
	"github.com/akolanti/CSDAssistant/internal/rag/llm"
	"github.com/akolanti/CSDAssistant/internal/rag/retriever"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

/*
The chat service only talks to Service. The private struct holds the index,
the embedder and the model so none of them leak to callers, and tests swap
them for mocks through NewService.
*/

type Service interface {
	Answer(ctx context.Context, question string, profile language.Profile) (Answer, error)
	IngestDocument(ctx context.Context, path string) (ingest.Stats, error)
}

// Answer is the generated reply plus what it was grounded on.
type Answer struct {
	Text       string
	Pages      []int
	Compressed bool
	Passages   int
}

type service struct {
	index       vectorDB.Index
	llmProvider llm.Provider
	embedder    embedding.Embedder
	retriever   *retriever.Retriever
	logger      *logger_i.Logger
}

func NewService(index vectorDB.Index, p llm.Provider, em embedding.Embedder, compress bool) Service {
	return &service{
		index:       index,
		llmProvider: p,
		embedder:    em,
		retriever:   retriever.New(NewSearcher(em, index), p, compress),
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Answer(ctx context.Context, question string, profile language.Profile) (Answer, error) {
	log := s.logger.WithTrace(ctx).With("language", profile.Language.Code())

	passages, compressed, err := s.executeRetrievalStep(ctx, log, question)
	if err != nil {
		return Answer{}, wrapStep(StepRetrieval, err)
	}

	// nothing survived retrieval, the admission is the answer
	if len(passages) == 0 {
		log.Info("no relevant passages")
		return Answer{Text: profile.NoInfoMessage, Compressed: compressed}, nil
	}

	text, err := s.executeLLMStep(ctx, log, profile, question, passages)
	if err != nil {
		return Answer{}, wrapStep(StepGeneration, err)
	}

	return Answer{
		Text:       text,
		Pages:      sourcePages(passages),
		Compressed: compressed,
		Passages:   len(passages),
	}, nil
}

func (s *service) IngestDocument(ctx context.Context, path string) (ingest.Stats, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	stats, err := ingest.ProcessDocumentIngestion(ctx, path, s.embedder, s.index)
	if err != nil {
		return ingest.Stats{}, wrapStep(StepIngestion, err)
	}
	metrics.SetIndexedChunks(s.index.Count())
	s.logger.Info("document indexed", "document", stats.Document.Name, "pages", stats.Pages, "chunks", stats.Chunks, "took", stats.Duration)
	return stats, nil
}
