package googleEmbedding

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/customHttpClient"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetPooledClient(),
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Debug("Google Embedding model name: " + modelName)
	logger.Info("Google Embedding client created")
}

// GetGoogleEmbeddingClient returns nil when the client cannot be built.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.WithTrace(ctx)
	log.Debug("embedding query", "length", len(query))

	vectors, err := c.embed(ctx, []string{query}, taskQuery, false, log)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.WithTrace(ctx).With("batch", len(chunks))
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := c.embed(ctx, chunks, taskDocument, true, log)
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	return vectors, nil
}

func (c *client) embed(ctx context.Context, texts []string, task string, retry bool, log *logger_i.Logger) ([][]float32, error) {
	content := getContent(texts)
	res, err := callWithQuotaRetry(ctx, retry, retryDelay, log, func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return c.doCall(ctx, content, task)
	})
	if err != nil {
		return nil, err
	}
	return collectVectors(res, len(texts))
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, config.EmbeddingTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             task,
	})
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	return result, err
}
