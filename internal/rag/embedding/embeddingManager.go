package embedding

import "context"

// Embedder returns vectors of one fixed dimensionality for every call.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
}
