package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"collegeseeker/loader"
	"collegeseeker/pipeline"
	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
)

func linkApp(t *testing.T, st *stubStore) *fiber.App {
	t.Helper()
	ingestor, err := pipeline.NewIngestor(st, stubEmbedder{}, types.Config{ChunkSize: 500, ChunkOverlap: 50})
	if err != nil {
		t.Fatal(err)
	}
	// Injected loader carries the configured default crawl depth of 1.
	handler := NewIngestHandler(ingestor, loader.NewWebLoader(5*time.Second, 1), nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/upload/course-link", handler.HandleCourseLink)
	return app
}

func crawlSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>institute overview text</p><a href="/courses">courses</a></body></html>`)
	})
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>course listing text</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleCourseLink_OmittedDepthKeepsDefaultCrawl(t *testing.T) {
	st := &stubStore{}
	app := linkApp(t, st)
	srv := crawlSite(t)

	resp := postJSON(t, app, "/api/v1/upload/course-link", map[string]string{"link": srv.URL})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if len(st.saved) != 2 {
		t.Fatalf("omitted max_depth must keep the default depth-1 crawl, ingested %d pages", len(st.saved))
	}
	urls := map[string]bool{}
	for _, doc := range st.saved {
		urls[doc.SourcePath] = true
	}
	if !urls[srv.URL+"/courses"] {
		t.Fatalf("linked page never fetched, ingested %v", urls)
	}
}

func TestHandleCourseLink_ExplicitDepthZero(t *testing.T) {
	st := &stubStore{}
	app := linkApp(t, st)
	srv := crawlSite(t)

	resp := postJSON(t, app, "/api/v1/upload/course-link",
		map[string]any{"link": srv.URL, "max_depth": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if len(st.saved) != 1 {
		t.Fatalf("max_depth 0 must ingest the root page only, got %d pages", len(st.saved))
	}
}

func TestHandleCourseLink_RejectsBadDepth(t *testing.T) {
	app := linkApp(t, &stubStore{})

	resp := postJSON(t, app, "/api/v1/upload/course-link",
		map[string]any{"link": "https://example.edu", "max_depth": 5})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range depth, got %d", resp.StatusCode)
	}
}
