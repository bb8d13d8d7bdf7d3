package qdrantDB

import (
	"testing"
	"time"

	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/qdrant/go-client/qdrant"
)

func TestPayloadRoundTrip(t *testing.T) {
	chunk := commonModels.DocChunk{
		Doc:            commonModels.Document{Id: "doc-1", Name: "documento.pdf", LastIngestTimestamp: time.Unix(100, 0)},
		ChunkId:        "6f1c8d8e-9a43-4c1e-9d0b-1c2f8a7e5b11",
		Chunk:          "El rector es Juan Pérez.",
		PageNum:        3,
		ChunkPageOrder: 1,
		Order:          7,
	}

	hit := &qdrant.ScoredPoint{Payload: qdrant.NewValueMap(chunkPayload(chunk)), Score: 0.9}
	got := toChunk(hit)

	if got.Chunk != chunk.Chunk || got.PageNum != 3 || got.Order != 7 || got.ChunkPageOrder != 1 {
		t.Errorf("chunk mismatch: %+v", got)
	}
	if got.Doc.Id != "doc-1" || got.Doc.Name != "documento.pdf" || got.ChunkId != chunk.ChunkId {
		t.Errorf("document mismatch: %+v", got)
	}
}
