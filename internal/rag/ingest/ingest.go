package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/domain/commonModels"
	"github.com/akolanti/CSDAssistant/internal/rag/embedding"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var ErrDocumentNotFound = errors.New("source document not found")

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Stats describes one finished ingestion, shown in the sidebar diagnostic.
type Stats struct {
	Document commonModels.Document
	Pages    int
	Chunks   int
	Duration time.Duration
}

var logger = logger_i.NewLogger("Document Ingestion")

// LoadDocument reads the pages of the document at path. Pages that yield no
// text are dropped, the document as a whole must exist.
func LoadDocument(path string) (commonModels.Document, []rawPage, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return commonModels.Document{}, nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return commonModels.Document{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	docType := getDocType(path)
	if docType == commonModels.ERR {
		return commonModels.Document{}, nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}

	doc := commonModels.Document{
		Id:                  utils.GetNewUUID(),
		Name:                filepath.Base(path),
		LastIngestTimestamp: time.Now(),
		ContentType:         docType,
	}

	pages, err := extractText(path, docType)
	if err != nil {
		return doc, nil, err
	}
	return doc, pages, nil
}

// ProcessDocumentIngestion loads the document, chunks it and fills index from
// scratch. Any failure is fatal for the caller, there is no partial index.
func ProcessDocumentIngestion(ctx context.Context, path string, e embedding.Embedder, index vectorDB.Index) (Stats, error) {
	log := logger.WithTrace(ctx)
	start := time.Now()

	log.Debug("Processing document", "path", path)
	doc, pages, err := LoadDocument(path)
	if err != nil {
		log.Error("Error loading document", "error", err)
		return Stats{}, err
	}

	chunks := PrepareChunks(pages, doc)
	log.Info("Processing document", "pages", len(pages), "chunks", len(chunks))
	if len(chunks) == 0 {
		log.Warn("Document has no extractable text, the index will be empty", "document", doc.Name)
	}

	if err := index.Reset(ctx); err != nil {
		return Stats{}, fmt.Errorf("resetting index: %w", err)
	}
	if err := BatchIngest(ctx, chunks, index, e); err != nil {
		log.Error("Error indexing document", "error", err)
		return Stats{}, err
	}

	return Stats{
		Document: doc,
		Pages:    len(pages),
		Chunks:   len(chunks),
		Duration: time.Since(start),
	}, nil
}
