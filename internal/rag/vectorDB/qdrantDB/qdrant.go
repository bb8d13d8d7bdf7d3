package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

type ClientHolder struct {
	QObj           *qdrant.Client
	collectionName string
}

// GetQuadrantClient returns nil when the server cannot be reached.
func GetQuadrantClient(ctx context.Context, host string, port int) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(host, port)
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj:           quadrantInstance,
		collectionName: config.EmbeddingDBName,
	}
}

func newClient(host string, port int) *qdrant.Client {
	if host == "" || port == 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	if _, err := client.HealthCheck(context.Background()); err != nil {
		logger.Error("qdrant health check failed", "host", host, "port", port, "error:", err)
		_ = client.Close()
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) Name() string {
	return "qdrant"
}

// Reset drops whatever an earlier process left and recreates the collection.
func (db *ClientHolder) Reset(ctx context.Context) error {
	exists, err := db.QObj.CollectionExists(ctx, db.collectionName)
	if err != nil {
		return err
	}
	if exists {
		if err := db.QObj.DeleteCollection(ctx, db.collectionName); err != nil {
			return fmt.Errorf("could not drop collection %s: %w", db.collectionName, err)
		}
	}
	return createCollection(ctx, db.QObj, db.collectionName)
}

func (db *ClientHolder) Search(ctx context.Context, vectorFloat []float32, k int) ([]commonModels.SearchResult, error) {
	loggr := logger.WithTrace(ctx)
	if k <= 0 {
		return []commonModels.SearchResult{}, nil
	}

	// one extra hit tells us whether the cut lands inside a run of equal scores
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collectionName,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(k + 1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	matches := make([]commonModels.SearchResult, 0, len(result))
	for _, hit := range result {
		matches = append(matches, commonModels.SearchResult{
			Chunk: toChunk(hit),
			Score: hit.Score,
		})
	}

	if len(matches) > k && matches[k].Score == matches[k-1].Score {
		loggr.Debug("tie at the cut, scoring whole collection")
		return db.searchAll(ctx, vectorFloat, k)
	}
	return vectorDB.RankResults(matches, k), nil
}

func (db *ClientHolder) searchAll(ctx context.Context, vectorFloat []float32, k int) ([]commonModels.SearchResult, error) {
	total := db.Count()
	if total <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collectionName,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(total)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	matches := make([]commonModels.SearchResult, 0, len(result))
	for _, hit := range result {
		matches = append(matches, commonModels.SearchResult{Chunk: toChunk(hit), Score: hit.Score})
	}
	return vectorDB.RankResults(matches, k), nil
}

func (db *ClientHolder) Count() int {
	n, err := db.QObj.Count(context.Background(), &qdrant.CountPoints{
		CollectionName: db.collectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		logger.Error("could not count points", "error:", err)
		return 0
	}
	return int(n)
}

func (db *ClientHolder) Upsert(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(chunkPayload(chunk)),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func chunkPayload(chunk commonModels.DocChunk) map[string]any {
	return map[string]any{
		"content":          chunk.Chunk,
		"page_num":         chunk.PageNum,
		"source_doc_id":    chunk.Doc.Id,
		"doc_name":         chunk.Doc.Name,
		"chunk_page_order": chunk.ChunkPageOrder,
		"chunk_order":      chunk.Order,
		"chunk_id":         chunk.ChunkId,
		"ingested_at":      chunk.Doc.LastIngestTimestamp.Unix(),
	}
}

func toChunk(hit *qdrant.ScoredPoint) commonModels.DocChunk {
	p := hit.GetPayload()
	return commonModels.DocChunk{
		Doc: commonModels.Document{
			Id:   p["source_doc_id"].GetStringValue(),
			Name: p["doc_name"].GetStringValue(),
		},
		ChunkId:        p["chunk_id"].GetStringValue(),
		Chunk:          p["content"].GetStringValue(),
		PageNum:        int(p["page_num"].GetIntegerValue()),
		ChunkPageOrder: int(p["chunk_page_order"].GetIntegerValue()),
		Order:          int(p["chunk_order"].GetIntegerValue()),
	}
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}
