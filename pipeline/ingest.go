package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"collegeseeker/chunk"
	"collegeseeker/model"
	"collegeseeker/store"
	"collegeseeker/types"

	"github.com/google/uuid"
)

// Ingestor runs the write path: raw document text in, embedded chunks in the
// vector store out. Re-ingesting the same source supersedes the previous
// chunks rather than mutating them.
type Ingestor struct {
	logger   *slog.Logger
	store    store.DBStorer
	embedder model.EmbedderInterface
	splitter *chunk.Splitter
}

func NewIngestor(storer store.DBStorer, embedder model.EmbedderInterface, cfg types.Config) (*Ingestor, error) {
	splitter, err := chunk.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Ingestor{
		logger:   slog.Default(),
		store:    storer,
		embedder: embedder,
		splitter: splitter,
	}, nil
}

// Ingest chunks, embeds and stores one document's text. Returns the stored
// chunk count.
func (in *Ingestor) Ingest(ctx context.Context, title string, kind types.DocKind, sourcePath, text string) (types.IngestResult, error) {
	doc := types.Document{
		ID:         uuid.New(),
		Title:      title,
		Kind:       kind,
		SourcePath: sourcePath,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
		Version:    1,
	}

	// A source already in the store keeps its identity; its chunks are
	// replaced wholesale, but only once the full replacement is embedded.
	superseding := false
	prev, err := in.store.GetDocumentBySource(ctx, kind, sourcePath)
	switch {
	case err == nil:
		doc.ID = prev.ID
		doc.CreatedAt = prev.CreatedAt
		doc.Version = prev.Version + 1
		superseding = true
	case errors.Is(err, sql.ErrNoRows):
		// first ingestion of this source
	default:
		return errResult(err), err
	}

	chunks := in.splitter.SplitDocument(&doc, text)
	if len(chunks) == 0 {
		err := types.NewValidationError(map[string]string{"text": "document has no extractable text"})
		return errResult(err), err
	}

	for i := range chunks {
		vec, err := retry(ctx, "embed chunk", func() ([]float32, error) {
			return in.embedder.Embed(ctx, chunks[i].Content)
		})
		if err != nil {
			return errResult(err), err
		}
		chunks[i].Embedding = vec
	}

	if superseding {
		if err := in.store.DeleteChunksByDocID(ctx, doc.ID); err != nil {
			return errResult(err), err
		}
		in.logger.Info("superseding document", "source", sourcePath, "version", doc.Version)
	}

	if err := in.store.SaveDocument(ctx, doc); err != nil {
		return errResult(err), err
	}
	if err := in.store.SaveChunks(ctx, chunks); err != nil {
		return errResult(err), err
	}

	in.logger.Info("document ingested", "title", title, "kind", kind, "chunks", len(chunks))
	return types.IngestResult{
		Status:     "success",
		Message:    fmt.Sprintf("Processed %d document chunks.", len(chunks)),
		ChunkCount: len(chunks),
	}, nil
}

func errResult(err error) types.IngestResult {
	return types.IngestResult{Status: "error", Message: err.Error()}
}
