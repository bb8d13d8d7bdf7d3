package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
)

//splitter

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

type span struct {
	start int
	end   int
}

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	spans := splitTextIntoSpans(text, limit, overlap)
	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunks = append(chunks, text[s.start:s.end])
	}
	return chunks
}

// splitTextIntoSpans windows text into spans of at most limit bytes. Each span
// starts at or before the end of the previous one, so together they cover the
// whole text; the shared part is at most overlap bytes and starts on a word.
func splitTextIntoSpans(text string, limit int, overlap int) []span {
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []span{{0, len(text)}}
	}

	cuts := cutPoints(text, limit)
	var spans []span
	start := 0
	for {
		end := lastCutWithin(cuts, start+limit)
		if n := len(spans); n > 0 && end <= spans[n-1].end {
			// the overlapped window cannot reach past the previous span
			start = spans[n-1].end
			continue
		}
		spans = append(spans, span{start, end})
		if end >= len(text) {
			return spans
		}
		start = overlapStart(text, start, end, overlap)
	}
}

// cutPoints returns the ascending end offsets of pieces no longer than limit,
// the last one is len(text).
func cutPoints(text string, limit int) []int {
	var cuts []int
	offset := 0
	for _, piece := range splitPieces(text, limit, separators) {
		offset += len(piece)
		cuts = append(cuts, offset)
	}
	return cuts
}

// splitPieces keeps every byte: separators stay attached to the piece before them.
func splitPieces(text string, limit int, seps []string) []string {
	if len(text) <= limit {
		return []string{text}
	}

	for i, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}
		var pieces []string
		for _, part := range strings.SplitAfter(text, sep) {
			if part == "" {
				continue
			}
			if len(part) > limit {
				pieces = append(pieces, splitPieces(part, limit, seps[i+1:])...)
				continue
			}
			pieces = append(pieces, part)
		}
		return pieces
	}

	// Hard cut if no separator found (rare), never inside a rune
	var pieces []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

func lastCutWithin(cuts []int, max int) int {
	best := cuts[0]
	for _, c := range cuts {
		if c > max {
			break
		}
		best = c
	}
	return best
}

func overlapStart(text string, prevStart int, prevEnd int, overlap int) int {
	next := prevEnd - overlap
	if overlap <= 0 || next <= prevStart {
		return prevEnd
	}
	window := text[next:prevEnd]
	if i := strings.IndexAny(window, " \n\t"); i >= 0 && next+i+1 < prevEnd {
		return next + i + 1
	}
	for next < prevEnd && !utf8.RuneStart(text[next]) {
		next++
	}
	return next
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractdocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// PrepareChunks splits every page and numbers the chunks in insertion order.
// Pages without extractable text contribute nothing.
func PrepareChunks(pages []rawPage, doc commonModels.Document) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk

	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		stringChunks := splitTextIntoChunks(page.Content, config.ChunkSize, config.ChunkOverlap)

		pageOrder := 0
		for _, text := range stringChunks {
			if strings.TrimSpace(text) == "" {
				continue
			}
			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:            doc,
				ChunkId:        utils.GetNewUUID(),
				Chunk:          text,
				PageNum:        page.Number,
				ChunkPageOrder: pageOrder,
				Order:          len(allChunks),
			})
			pageOrder++
		}
	}

	return allChunks
}

func BatchIngest(ctx context.Context, chunks []commonModels.DocChunk, index vectorDB.Index, embedder embedding.Embedder) error {
	log := logger.WithTrace(ctx)
	batchSize := config.EmbeddingBatchSize

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		currentBatch := chunks[i:end]
		texts := make([]string, 0, len(currentBatch))
		for _, c := range currentBatch {
			texts = append(texts, c.Chunk)
		}

		log.Debug("Starting embedding call", "batch start", i, "batch length", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return fmt.Errorf("embedding batch returned %d vectors for %d chunks", len(vectors), len(currentBatch))
		}

		if err := index.Upsert(ctx, currentBatch, vectors); err != nil {
			return fmt.Errorf("upserting to %s failed: %w", index.Name(), err)
		}
	}

	return nil
}
