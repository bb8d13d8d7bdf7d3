package chromemDB

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"github.com/philippgille/chromem-go"
)

const (
	metaPage      = "page_num"
	metaOrder     = "chunk_order"
	metaPageOrder = "chunk_page_order"
	metaDocId     = "source_doc_id"
	metaDocName   = "doc_name"
)

var (
	errNoEmbedder        = errors.New("chromem index only accepts precomputed embeddings")
	ErrDimensionMismatch = errors.New("vector dimension does not match the index")
)

// Index keeps the whole document in process memory. It is rebuilt at every start.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dim        int //set by the first upsert after a reset
	logger     *logger_i.Logger
}

// embeddings are always supplied by the caller
func refuseEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbedder
}

func NewIndex(collectionName string) (*Index, error) {
	if collectionName == "" {
		collectionName = config.EmbeddingDBName
	}
	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(collectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &Index{
		db:         db,
		collection: c,
		name:       collectionName,
		logger:     logger_i.NewLogger("chromem"),
	}, nil
}

func (i *Index) Name() string {
	return "chromem"
}

func (i *Index) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.db.DeleteCollection(i.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	c, err := i.db.CreateCollection(i.name, nil, refuseEmbedding)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	i.collection = c
	i.dim = 0
	return nil
}

func (i *Index) Upsert(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	dim := i.dim
	docs := make([]chromem.Document, len(chunks))
	for n, chunk := range chunks {
		if len(vectors[n]) == 0 {
			return fmt.Errorf("chunk %s has an empty vector", chunk.ChunkId)
		}
		if dim == 0 {
			dim = len(vectors[n])
		}
		if len(vectors[n]) != dim {
			return fmt.Errorf("%w: chunk %s has %d, index has %d", ErrDimensionMismatch, chunk.ChunkId, len(vectors[n]), dim)
		}
		docs[n] = chromem.Document{
			ID:        chunk.ChunkId,
			Content:   chunk.Chunk,
			Embedding: vectors[n],
			Metadata: map[string]string{
				metaPage:      strconv.Itoa(chunk.PageNum),
				metaOrder:     strconv.Itoa(chunk.Order),
				metaPageOrder: strconv.Itoa(chunk.ChunkPageOrder),
				metaDocId:     chunk.Doc.Id,
				metaDocName:   chunk.Doc.Name,
			},
		}
	}

	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	i.dim = dim
	return nil
}

// Search scores every chunk so equal scores can be broken by document order
// before truncating to k.
func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]commonModels.SearchResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	total := i.collection.Count()
	if total == 0 || k <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	if len(vector) != i.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), i.dim)
	}

	hits, err := i.collection.QueryEmbedding(ctx, vector, total, nil, nil)
	if err != nil {
		i.logger.WithTrace(ctx).Error("chromem query failed", "error", err)
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	results := make([]commonModels.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, commonModels.SearchResult{
			Chunk: toChunk(hit),
			Score: hit.Similarity,
		})
	}
	return vectorDB.RankResults(results, k), nil
}

func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.collection.Count()
}

func toChunk(hit chromem.Result) commonModels.DocChunk {
	page, _ := strconv.Atoi(hit.Metadata[metaPage])
	order, _ := strconv.Atoi(hit.Metadata[metaOrder])
	pageOrder, _ := strconv.Atoi(hit.Metadata[metaPageOrder])
	return commonModels.DocChunk{
		Doc: commonModels.Document{
			Id:   hit.Metadata[metaDocId],
			Name: hit.Metadata[metaDocName],
		},
		ChunkId:        hit.ID,
		Chunk:          hit.Content,
		PageNum:        page,
		ChunkPageOrder: pageOrder,
		Order:          order,
	}
}
