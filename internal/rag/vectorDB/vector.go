package vectorDB

import (
	"context"
	"sort"

	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
)

// Index owns the chunks and their vectors for the life of the process.
// Search returns at most k results, most similar first, ties by chunk Order.
type Index interface {
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]commonModels.SearchResult, error)
	Count() int
	Name() string
}

// RankResults applies the ordering contract and truncates to k.
func RankResults(results []commonModels.SearchResult, k int) []commonModels.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Order < results[j].Chunk.Order
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
