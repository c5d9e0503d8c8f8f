package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"collegeseeker/types"
)

// WebSearcher is the fallback tool the agent may call when the retrieved
// context is insufficient.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// TavilySearch calls the Tavily search API and flattens the top results into
// a context block.
type TavilySearch struct {
	apiURL     string
	apiKey     string
	maxResults int
	timeout    time.Duration
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Topic      string `json:"topic"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

func NewTavilySearch(timeout time.Duration) *TavilySearch {
	apiURL := os.Getenv("TAVILY_URL")
	if apiURL == "" {
		apiURL = "https://api.tavily.com/search"
	}
	return &TavilySearch{
		apiURL:     apiURL,
		apiKey:     os.Getenv("TAVILY_API_KEY"),
		maxResults: 5,
		timeout:    timeout,
	}
}

func (t *TavilySearch) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      query,
		MaxResults: t.maxResults,
		Topic:      "general",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", types.NewExternalServiceError("web-search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", types.NewExternalServiceError("web-search",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", types.NewExternalServiceError("web-search",
			fmt.Errorf("malformed response: %w", err))
	}

	var b strings.Builder
	for _, res := range tr.Results {
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", res.Title, res.URL, res.Content)
	}
	return strings.TrimSpace(b.String()), nil
}
