package gemini

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/customHttpClient"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag/llm"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

// GetGeminiClient returns nil when the client cannot be built.
func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetPooledClient(),
	})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Debug("Gemini client model", "model", modelName)
	logger.Info("Gemini client created")
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](config.ModelTemperature),
	}
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.WithTrace(ctx)
	ctx, cancel := context.WithTimeout(ctx, config.GenerationTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), generationConfig())
	metrics.CaptureExecutionMetrics("generation", time.Since(start))
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", err
	}
	return completionText(result)
}

func completionText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", llm.ErrEmptyCompletion
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}
