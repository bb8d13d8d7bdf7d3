package retriever

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag/llm"
	"github.com/akolanti/CSDAssistant/internal/rag/prompts"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Searcher answers search(query_text, k) over the document index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]commonModels.SearchResult, error)
}

// Passage is one piece of context handed to the generator.
type Passage struct {
	Text       string
	Page       int
	Score      float32
	Compressed bool
}

type Retriever struct {
	searcher Searcher
	llm      llm.Provider
	compress bool
	logger   *logger_i.Logger
}

// New builds the direct retriever when compress is false or p is nil.
func New(s Searcher, p llm.Provider, compress bool) *Retriever {
	return &Retriever{
		searcher: s,
		llm:      p,
		compress: compress && p != nil,
		logger:   logger_i.NewLogger("retriever"),
	}
}

func (r *Retriever) Compresses() bool {
	return r.compress
}

// Retrieve returns passages in similarity order. The bool reports whether the
// passages went through compression, which is false after a fallback.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Passage, bool, error) {
	if !r.compress {
		hits, err := r.searcher.Search(ctx, question, config.DirectRetrievalK)
		if err != nil {
			return nil, false, err
		}
		return toPassages(hits), false, nil
	}

	hits, err := r.searcher.Search(ctx, question, config.RetrievalK)
	if err != nil {
		return nil, false, err
	}

	passages, err := r.compressAll(ctx, question, hits)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		r.logger.WithTrace(ctx).Warn("compression failed, using direct retrieval", "error", err)
		metrics.CaptureTurnWarning("compression")
		return toPassages(direct(hits)), false, nil
	}
	return passages, true, nil
}

// compressAll keeps the ranking order; at most CompressionConcurrency calls run at once.
func (r *Retriever) compressAll(ctx context.Context, question string, hits []commonModels.SearchResult) ([]Passage, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("compression", time.Since(start)) }()

	extracted := make([]string, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.CompressionConcurrency)

	for i, hit := range hits {
		g.Go(func() error {
			text, err := r.extract(gctx, question, hit.Chunk.Chunk)
			if err != nil {
				return err
			}
			extracted[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(hits))
	for i, hit := range hits {
		if extracted[i] == "" {
			continue
		}
		passages = append(passages, Passage{
			Text:       extracted[i],
			Page:       hit.Chunk.PageNum,
			Score:      hit.Score,
			Compressed: true,
		})
	}
	return passages, nil
}

func (r *Retriever) extract(ctx context.Context, question string, chunk string) (string, error) {
	prompt, err := prompts.Render(prompts.Compression, chunk, question)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, config.CompressionTimeout)
	defer cancel()

	out, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		// an empty completion just means nothing relevant
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return "", nil
		}
		return "", err
	}
	return cleanExtraction(out), nil
}

// cleanExtraction maps the NO_OUTPUT marker and blank replies to "".
func cleanExtraction(out string) string {
	out = strings.TrimSpace(out)
	if out == "" || strings.EqualFold(out, config.CompressionNoOutput) {
		return ""
	}
	return out
}

func direct(hits []commonModels.SearchResult) []commonModels.SearchResult {
	if len(hits) > config.DirectRetrievalK {
		return hits[:config.DirectRetrievalK]
	}
	return hits
}

func toPassages(hits []commonModels.SearchResult) []Passage {
	passages := make([]Passage, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, Passage{
			Text:  hit.Chunk.Chunk,
			Page:  hit.Chunk.PageNum,
			Score: hit.Score,
		})
	}
	return passages
}

// JoinPassages formats passages as the {context} of the answer prompt.
func JoinPassages(passages []Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}
