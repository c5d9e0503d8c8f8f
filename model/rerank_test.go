package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"collegeseeker/types"

	"github.com/google/uuid"
)

func rerankServer(t *testing.T, results []rerankResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(rerankResponse{Results: results})
	}))
}

func candidates(n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{ID: uuid.New(), Position: i, Content: "candidate text"}
	}
	return chunks
}

func TestRerank_TopNByScore(t *testing.T) {
	srv := rerankServer(t, []rerankResult{
		{Index: 0, RelevanceScore: 0.9},
		{Index: 1, RelevanceScore: 0.3},
		{Index: 2, RelevanceScore: 0.7},
	})
	defer srv.Close()

	r := &HTTPReranker{apiURL: srv.URL, timeout: 5 * time.Second}
	cands := candidates(3)

	ranked, err := r.Rerank(context.Background(), "which degree fits me", cands, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].Relevance != 0.9 || ranked[1].Relevance != 0.7 {
		t.Fatalf("expected scores [0.9 0.7], got [%v %v]", ranked[0].Relevance, ranked[1].Relevance)
	}
	if ranked[0].ID != cands[0].ID || ranked[1].ID != cands[2].ID {
		t.Fatal("scores not mapped back to the right candidates")
	}
}

func TestRerank_TiesKeepRetrievalOrder(t *testing.T) {
	srv := rerankServer(t, []rerankResult{
		{Index: 2, RelevanceScore: 0.5},
		{Index: 0, RelevanceScore: 0.5},
		{Index: 1, RelevanceScore: 0.5},
	})
	defer srv.Close()

	r := &HTTPReranker{apiURL: srv.URL, timeout: 5 * time.Second}
	cands := candidates(3)

	ranked, err := r.Rerank(context.Background(), "query", cands, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range ranked {
		if ranked[i].Position != i {
			t.Fatalf("equal scores must keep retrieval order, got position %d at rank %d", ranked[i].Position, i)
		}
	}
}

func TestRerank_FewerResultsThanTopN(t *testing.T) {
	srv := rerankServer(t, []rerankResult{
		{Index: 1, RelevanceScore: 0.4},
	})
	defer srv.Close()

	r := &HTTPReranker{apiURL: srv.URL, timeout: 5 * time.Second}

	ranked, err := r.Rerank(context.Background(), "query", candidates(4), 6)
	if err != nil {
		t.Fatalf("fewer results than top_n must not error: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected the single available result, got %d", len(ranked))
	}
}

func TestRerank_EmptyCandidates(t *testing.T) {
	r := &HTTPReranker{apiURL: "http://invalid.invalid", timeout: time.Second}
	ranked, err := r.Rerank(context.Background(), "query", nil, 6)
	if err != nil {
		t.Fatalf("empty candidate set must not call the service: %v", err)
	}
	if ranked != nil {
		t.Fatalf("expected no results, got %d", len(ranked))
	}
}

func TestRerank_ServiceErrorIsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := &HTTPReranker{apiURL: srv.URL, timeout: 5 * time.Second}
	_, err := r.Rerank(context.Background(), "query", candidates(2), 2)
	if err == nil {
		t.Fatal("expected error from failing service")
	}
	if _, ok := err.(types.ExternalServiceError); !ok {
		t.Fatalf("expected ExternalServiceError, got %T", err)
	}
}

func TestRerank_OutOfRangeIndexIsMalformedResponse(t *testing.T) {
	srv := rerankServer(t, []rerankResult{{Index: 7, RelevanceScore: 0.9}})
	defer srv.Close()

	r := &HTTPReranker{apiURL: srv.URL, timeout: 5 * time.Second}
	_, err := r.Rerank(context.Background(), "query", candidates(2), 2)
	if err == nil {
		t.Fatal("expected error for out-of-range result index")
	}
}
