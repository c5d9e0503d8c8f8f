package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"collegeseeker/model"
	"collegeseeker/store"
	"collegeseeker/types"
)

// Retrieval holds one query's retrieved and re-scored context. Reranked is
// false when the reranker failed and the raw similarity order was kept.
type Retrieval struct {
	Chunks   []types.RankedChunk
	Reranked bool
}

// QueryPipeline runs the read path: query text in, reranked top-N context
// chunks out.
type QueryPipeline struct {
	logger   *slog.Logger
	store    store.DBStorer
	embedder model.EmbedderInterface
	reranker model.RerankerInterface
	cfg      types.Config
}

func NewQueryPipeline(storer store.DBStorer, embedder model.EmbedderInterface, reranker model.RerankerInterface, cfg types.Config) *QueryPipeline {
	return &QueryPipeline{
		logger:   slog.Default(),
		store:    storer,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
	}
}

// Retrieve embeds the query, pulls the K nearest chunks from one corpus and
// reranks them down to top-N. On rerank failure the raw similarity order is
// kept, truncated to top-N; results are never silently dropped.
func (q *QueryPipeline) Retrieve(ctx context.Context, query, corpus string, topN int) (*Retrieval, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewValidationError(map[string]string{"query": "must not be blank"})
	}
	if topN <= 0 {
		topN = q.cfg.RerankTopN
	}

	queryVec, err := retry(ctx, "embed query", func() ([]float32, error) {
		return q.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	candidates, err := retry(ctx, "similarity search", func() ([]types.Chunk, error) {
		return q.store.Search(ctx, queryVec, q.cfg.RetrieveK, corpus)
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Retrieval{}, nil
	}

	ranked, err := q.reranker.Rerank(ctx, query, candidates, topN)
	if err != nil {
		q.logger.Warn("rerank failed, falling back to similarity order", "error", err)
		return &Retrieval{Chunks: rawOrder(candidates, topN), Reranked: false}, nil
	}

	return &Retrieval{Chunks: ranked, Reranked: true}, nil
}

func rawOrder(candidates []types.Chunk, topN int) []types.RankedChunk {
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	ranked := make([]types.RankedChunk, len(candidates))
	for i, c := range candidates {
		ranked[i] = types.RankedChunk{Chunk: c, Relevance: c.Distance}
	}
	return ranked
}

// Sources converts a retrieval into the API source records.
func (r *Retrieval) Sources() []types.Source {
	sources := make([]types.Source, len(r.Chunks))
	for i, ch := range r.Chunks {
		sources[i] = types.Source{
			SourceID: ch.DocID.String(),
			URL:      ch.SourceURL,
			Snippet:  snippet(ch.Content, 280),
			Score:    ch.Relevance,
		}
	}
	return sources
}

func snippet(content string, limit int) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
