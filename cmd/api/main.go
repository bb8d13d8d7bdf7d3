// @title           CSD Assistant API
// @version         1.0
// @description     School assistant that answers questions about the official document, by text or voice.
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/CSDAssistant/internal/chat"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/data/store"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/akolanti/CSDAssistant/internal/handlers"
	"github.com/akolanti/CSDAssistant/internal/rag"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/CSDAssistant/internal/rag/llm/gemini"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/CSDAssistant/internal/server"
	"github.com/akolanti/CSDAssistant/internal/speech/googleSpeech"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var (
	listenAddr string
	configPath string
)

func main() {
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&configPath, "config", config.DefaultConfigPath, "widget configuration file")
	flag.Parse()

	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		cfg = config.Defaults()
	}
	logger_i.Init(cfg.Secrets.IsProd)
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	page := handlers.PageSettings{
		UI:    cfg.UI,
		Index: cfg.Retrieval.VectorBackend,
		Model: cfg.Models.Generation,
	}
	startErr := loadErr
	if startErr == nil {
		startErr = startAssistant(serviceContext, cfg, &page)
	}
	if startErr != nil {
		//keep serving so visitors see why the assistant is down
		logger.Error("Assistant failed to start, serving the error page", "error", startErr)
		handlers.InitFailedMode(startErr, page)
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

// startAssistant builds the index and the chat service. Any error is fatal for
// the assistant but not for the process.
func startAssistant(ctx context.Context, cfg *config.AppConfig, page *handlers.PageSettings) error {
	logger := logger_i.NewLogger("main")
	if err := cfg.Validate(); err != nil {
		return err
	}

	llmProvider := gemini.GetGeminiClient(ctx, cfg.Models.Generation, cfg.Secrets.GoogleAPIKey)
	embeddingService := googleEmbedding.GetGoogleEmbeddingClient(ctx, cfg.Models.Embedding, cfg.Secrets.GoogleAPIKey)
	if llmProvider == nil || embeddingService == nil {
		logger.Debug("Available services : ", "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return errors.New("no se pudo conectar con el servicio de Gemini")
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	page.Index = index.Name()

	ragService := rag.NewService(index, llmProvider, embeddingService, cfg.Retrieval.Compression)
	buildCtx, cancel := context.WithTimeout(ctx, config.IndexBuildTimeout)
	defer cancel()
	stats, err := ragService.IngestDocument(buildCtx, cfg.PDFDocumentPath)
	if err != nil {
		return fmt.Errorf("no se pudo indexar %s: %w", cfg.PDFDocumentPath, err)
	}
	page.Chunks = stats.Chunks
	logger.Info("Document indexed", "document", stats.Document.Name, "pages", stats.Pages, "chunks", stats.Chunks, "duration", stats.Duration.String())

	var sessions chatModel.SessionStore = store.InitInMemorySessionStore()
	page.Sessions = "memory"
	if redisSessions := store.GetRedisSessionStore(ctx, cfg.Secrets); redisSessions != nil {
		sessions = redisSessions
		page.Sessions = "redis"
		page.SessionCheck = redisSessions.Ping
	} else {
		logger.Warn("Redis session store is offline, sessions are kept in memory")
	}

	tts := googleSpeech.GetTTSClient(ctx, cfg.Secrets)
	stt := googleSpeech.GetSTTClient(ctx, cfg.Secrets)
	page.VoiceOutput = tts != nil
	page.VoiceInput = stt != nil
	if !cfg.Secrets.HasSpeechCredentials() {
		logger.Info("No speech service account configured, using application default credentials")
	}

	service := chat.NewService(sessions, ragService, tts, stt, cfg.UI.WelcomeMessage)
	handlers.InitChatHandler(service, *page)
	return nil
}

func openIndex(ctx context.Context, cfg *config.AppConfig) (vectorDB.Index, error) {
	if cfg.Retrieval.VectorBackend == config.VectorBackendQdrant {
		holder := qdrantDB.GetQuadrantClient(ctx, cfg.Secrets.QdrantHost, cfg.Secrets.QdrantPort)
		if holder == nil {
			return nil, errors.New("no se pudo conectar con Qdrant")
		}
		return holder, nil
	}
	index, err := chromemDB.NewIndex(config.EmbeddingDBName)
	if err != nil {
		return nil, err
	}
	return index, nil
}
