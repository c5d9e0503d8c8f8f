package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"collegeseeker/pipeline"
	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type stubStore struct {
	chunks   []types.Chunk
	students []types.Document
	saved    []types.Document
	courses  []types.CourseRecord
}

func (s *stubStore) SaveDocument(_ context.Context, doc types.Document) error {
	s.saved = append(s.saved, doc)
	return nil
}
func (s *stubStore) GetDocumentByID(context.Context, uuid.UUID) (*types.Document, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) GetDocumentBySource(context.Context, types.DocKind, string) (*types.Document, error) {
	return nil, sql.ErrNoRows
}
func (s *stubStore) SaveChunks(context.Context, []types.Chunk) error      { return nil }
func (s *stubStore) DeleteChunksByDocID(context.Context, uuid.UUID) error { return nil }
func (s *stubStore) EnsureIndex(context.Context, int) error               { return nil }

func (s *stubStore) SaveCourses(_ context.Context, records []types.CourseRecord) error {
	s.courses = append(s.courses, records...)
	return nil
}

func (s *stubStore) ListCourses(context.Context) ([]types.CourseRecord, error) {
	return s.courses, nil
}

func (s *stubStore) FindDocumentsByTitle(ctx context.Context, title, corpus string) ([]types.Document, error) {
	return s.students, nil
}

func (s *stubStore) Search(ctx context.Context, vec []float32, limit int, corpus string) ([]types.Chunk, error) {
	return s.chunks, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (stubEmbedder) Dimension() int { return 3 }

type stubReranker struct{}

func (stubReranker) Rerank(ctx context.Context, query string, candidates []types.Chunk, topN int) ([]types.RankedChunk, error) {
	ranked := make([]types.RankedChunk, 0, len(candidates))
	for i, c := range candidates {
		if i >= topN {
			break
		}
		ranked = append(ranked, types.RankedChunk{Chunk: c, Relevance: 0.9 - float64(i)*0.1})
	}
	return ranked, nil
}

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, system, prompt string) ([]byte, error) {
	return []byte(`{"response":"stub answer"}`), nil
}

func testApp(st *stubStore) *fiber.App {
	cfg := types.Config{RetrieveK: 12, RerankTopN: 6, ContextBudget: 6000}
	queries := pipeline.NewQueryPipeline(st, stubEmbedder{}, stubReranker{}, cfg)
	handler := NewRequestHandler(st, queries, stubLLM{}, nil, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	apiv1 := app.Group("/api/v1")
	apiv1.Get("/courses", handler.HandleCourses)
	apiv1.Post("/query", handler.HandleQuery)
	apiv1.Post("/student/analyze", handler.HandleAnalyze)
	apiv1.Post("/recommend", handler.HandleRecommend)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func storedChunks(n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ID:        uuid.New(),
			DocID:     uuid.New(),
			Position:  i,
			Content:   "B.Tech program details",
			SourceURL: "https://nitw.ac.in/btech",
			Distance:  0.9,
		}
	}
	return chunks
}

func TestHandleQuery_EmptyQueryRejected(t *testing.T) {
	app := testApp(&stubStore{chunks: storedChunks(3)})

	resp := postJSON(t, app, "/api/v1/query", map[string]string{"query": "   "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank query, got %d", resp.StatusCode)
	}
}

func TestHandleQuery_ReturnsAnswerAndSources(t *testing.T) {
	app := testApp(&stubStore{chunks: storedChunks(8)})

	resp := postJSON(t, app, "/api/v1/query",
		map[string]any{"query": "engineering programs", "limit": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var sr types.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if sr.Answer != "stub answer" {
		t.Fatalf("unexpected answer %q", sr.Answer)
	}
	if len(sr.Sources) != 2 {
		t.Fatalf("expected limit to cap sources at 2, got %d", len(sr.Sources))
	}
	if !sr.Reranked {
		t.Fatal("expected reranked response")
	}
	if sr.Sources[0].URL != "https://nitw.ac.in/btech" {
		t.Fatalf("source url lost: %+v", sr.Sources[0])
	}
}

func TestHandleAnalyze_UnknownStudentIs404(t *testing.T) {
	app := testApp(&stubStore{chunks: storedChunks(2)})

	resp := postJSON(t, app, "/api/v1/student/analyze",
		map[string]string{"student_name": "Nobody Known"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown student, got %d", resp.StatusCode)
	}
}

func TestHandleRecommend_IntegratedFlow(t *testing.T) {
	st := &stubStore{
		chunks: storedChunks(4),
		students: []types.Document{{
			ID:    uuid.New(),
			Title: "Sourav Dutta",
			Kind:  types.DocStudentPDF,
		}},
	}
	app := testApp(st)

	resp := postJSON(t, app, "/api/v1/recommend",
		map[string]string{"student_name": "Sourav Dutta"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rr types.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatal(err)
	}
	if rr.StudentAnalysis != "stub answer" {
		t.Fatalf("missing student analysis: %+v", rr)
	}
	if rr.Recommendations.Answer != "stub answer" {
		t.Fatalf("missing recommendations: %+v", rr)
	}
	if len(rr.Recommendations.Sources) == 0 {
		t.Fatal("expected course sources in integrated flow")
	}
}

func TestHandleCourses_ListsCatalog(t *testing.T) {
	st := &stubStore{courses: []types.CourseRecord{
		{ID: "nit-warangal-b-tech-cse", Institute: "NIT Warangal", Course: "B.Tech CSE"},
	}}
	app := testApp(st)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count   int                  `json:"count"`
		Courses []types.CourseRecord `json:"courses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || len(body.Courses) != 1 {
		t.Fatalf("expected one catalog record, got %+v", body)
	}
	if body.Courses[0].ID != "nit-warangal-b-tech-cse" {
		t.Fatalf("unexpected record %+v", body.Courses[0])
	}
}

func TestHandleAnalyze_MissingNameIs422(t *testing.T) {
	app := testApp(&stubStore{})

	resp := postJSON(t, app, "/api/v1/student/analyze", map[string]string{})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
