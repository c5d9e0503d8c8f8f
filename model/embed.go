package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"collegeseeker/types"
)

// EmbedderInterface maps a text to a fixed-dimension vector.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// OllamaEmbedder calls an Ollama-compatible embeddings endpoint.
type OllamaEmbedder struct {
	apiURL    string
	model     string
	dimension int
	timeout   time.Duration
}

type OllamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaEmbedder(timeout time.Duration) *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL:    os.Getenv("OLLAMA_EMBEDDING_URL"),
		model:     os.Getenv("OLLAMA_EMBEDDING_MODEL"),
		dimension: 768, // sentence-transformer class models
		timeout:   timeout,
	}
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := OllamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, types.NewExternalServiceError("embedder", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, types.NewExternalServiceError("embedder",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewExternalServiceError("embedder", err)
	}

	var ollamaResp OllamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, types.NewExternalServiceError("embedder",
			fmt.Errorf("malformed response: %w", err))
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, types.NewExternalServiceError("embedder",
			fmt.Errorf("empty embedding for %d bytes of text", len(text)))
	}

	norm := normalize64(ollamaResp.Embedding)

	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// normalize64 scales a vector to unit length so cosine distance behaves.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, x := range vec {
		vec[i] = x / norm
	}
	return vec
}
