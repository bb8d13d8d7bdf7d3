package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY                = "traceId"
	SESSION_ID_KEY              = "sessionId"
	SessionCookieName           = "csd_session"
	SessionCookieMaxAge         = 24 * time.Hour
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//chunking
	ChunkSize    = 1000 // characters
	ChunkOverlap = 150

	//retrieval
	RetrievalK             = 30 //compression variant
	DirectRetrievalK       = 4  //plain retriever, also the compression fallback
	CompressionConcurrency = 5
	CompressionNoOutput    = "NO_OUTPUT"

	//embeddings
	EmbeddingOutputDimensionality int32 = 768
	EmbeddingBatchSize                  = 100 //gemini rejects larger embed batches
	EmbeddingDBName                     = "csd-document"

	//external call timeouts
	EmbeddingTimeout   = 30 * time.Second
	GenerationTimeout  = 60 * time.Second
	CompressionTimeout = 20 * time.Second
	TTSTimeout         = 20 * time.Second
	STTTimeout         = 30 * time.Second
	TurnTimeout        = 150 * time.Second
	IndexBuildTimeout  = 10 * time.Minute
	PageExtractTimeout = 10 * time.Second

	//serverTimeouts - write timeout must outlive a full turn
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = TurnTimeout + 10*time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//uploads
	MaxAudioUploadSize = 10 << 20 //10mb

	//speech
	STTSampleRateHertz  int32 = 16000
	STTPrimaryLanguage        = "es-CO"
	STTAlternateLanguage      = "en-US"

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	QdrantKeepAliveTimeout = 30 * time.Second

	ModelTemperature float32 = 0 //literal, reproducible answers

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisSessionStore    = 2
	RedisSessionStoreTTL = SessionTTL

	//sessions
	SessionTTL           = 24 * time.Hour
	SessionSweepInterval = time.Minute
	RedisPingTimeout     = 3 * time.Second
)
