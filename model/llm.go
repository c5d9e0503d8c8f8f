package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"collegeseeker/types"
)

// GeneratorInterface produces a completion for a system instruction plus
// prompt. The raw body is returned untouched: depending on the endpoint it
// may be a single JSON object or a stream of fragments, and the caller owns
// normalizing that shape.
type GeneratorInterface interface {
	Generate(ctx context.Context, system, prompt string) ([]byte, error)
}

type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

// OllamaLLM calls an Ollama-compatible generate endpoint.
type OllamaLLM struct {
	apiURL  string
	model   string
	timeout time.Duration
}

func NewOllamaLLM(timeout time.Duration) *OllamaLLM {
	return &OllamaLLM{
		apiURL:  os.Getenv("LLM_URL"),
		model:   os.Getenv("LLM_MODEL"),
		timeout: timeout,
	}
}

func (l *OllamaLLM) Generate(ctx context.Context, system, prompt string) ([]byte, error) {
	reqBody, err := json.Marshal(GenerateRequest{
		Model:  l.model,
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, types.NewExternalServiceError("llm", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, types.NewExternalServiceError("llm",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewExternalServiceError("llm", err)
	}
	return body, nil
}
