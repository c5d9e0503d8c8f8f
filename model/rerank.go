package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"collegeseeker/types"
)

// RerankerInterface re-scores a candidate set against a query with a more
// precise model and returns the top-N, descending by relevance. Callers
// decide whether a rerank failure falls back to raw retrieval order.
type RerankerInterface interface {
	Rerank(ctx context.Context, query string, candidates []types.Chunk, topN int) ([]types.RankedChunk, error)
}

// HTTPReranker calls an external cross-encoder rerank service.
type HTTPReranker struct {
	apiURL  string
	model   string
	timeout time.Duration
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

func NewHTTPReranker(timeout time.Duration) *HTTPReranker {
	return &HTTPReranker{
		apiURL:  os.Getenv("RERANK_URL"),
		model:   os.Getenv("RERANK_MODEL"),
		timeout: timeout,
	}
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []types.Chunk, topN int) ([]types.RankedChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, types.NewExternalServiceError("reranker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, types.NewExternalServiceError("reranker",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, types.NewExternalServiceError("reranker",
			fmt.Errorf("malformed response: %w", err))
	}

	return rankCandidates(candidates, rr.Results, topN)
}

// rankCandidates maps service scores back onto the candidates, sorts them
// descending by relevance (stable, so ties keep retrieval order) and keeps
// at most topN. A service returning fewer results than topN is not an error.
func rankCandidates(candidates []types.Chunk, results []rerankResult, topN int) ([]types.RankedChunk, error) {
	scores := make(map[int]float64, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, types.NewExternalServiceError("reranker",
				fmt.Errorf("result index %d out of range (%d candidates)", res.Index, len(candidates)))
		}
		scores[res.Index] = res.RelevanceScore
	}

	// Build in retrieval order so the stable sort breaks ties by the
	// original similarity rank.
	ranked := make([]types.RankedChunk, 0, len(scores))
	for i, c := range candidates {
		score, ok := scores[i]
		if !ok {
			continue
		}
		ranked = append(ranked, types.RankedChunk{
			Chunk:     c,
			Relevance: score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}
