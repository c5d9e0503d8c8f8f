package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"collegeseeker/model"
	"collegeseeker/pipeline"
	"collegeseeker/types"

	"github.com/pkoukk/tiktoken-go"
)

// needWebSearch is the sentinel the model is told to emit when the retrieved
// context cannot answer the question.
const needWebSearch = "NEED_WEB_SEARCH"

const chunkSeparator = "\n\n---\n\n"

// BuildContextFunc retrieves the context for a query. It is injected into
// the agent so the agent never captures a store of its own.
type BuildContextFunc func(ctx context.Context, query string) (*pipeline.Retrieval, error)

// Agent composes retrieved context into a prompt, asks the LLM, and
// normalizes whatever shape comes back. Web search is used only when the
// model reports the context insufficient.
type Agent struct {
	logger       *slog.Logger
	llm          model.GeneratorInterface
	search       WebSearcher
	buildContext BuildContextFunc
	budget       int // prompt token budget
}

func New(llm model.GeneratorInterface, search WebSearcher, buildContext BuildContextFunc, budget int) *Agent {
	return &Agent{
		logger:       slog.Default(),
		llm:          llm,
		search:       search,
		buildContext: buildContext,
		budget:       budget,
	}
}

// Answer runs one retrieval-augmented question. The returned retrieval lets
// callers report which sources grounded the answer.
func (a *Agent) Answer(ctx context.Context, question string) (string, *pipeline.Retrieval, error) {
	retrieval, err := a.buildContext(ctx, question)
	if err != nil {
		return "", nil, err
	}

	contextBlock := a.assembleContext(retrieval.Chunks)

	answer, err := a.generate(ctx, systemInstruction(contextBlock), question)
	if err != nil {
		return "", retrieval, err
	}

	if strings.Contains(answer, needWebSearch) {
		if a.search == nil {
			return "No information for this request.", retrieval, nil
		}
		a.logger.Info("context insufficient, falling back to web search", "question", question)
		webContext, err := a.search.Search(ctx, question)
		if err != nil {
			a.logger.Warn("web search fallback failed", "error", err)
			return "No information for this request.", retrieval, nil
		}
		combined := contextBlock
		if combined != "" {
			combined += chunkSeparator
		}
		combined += "Web search results:\n" + webContext

		answer, err = a.generate(ctx, systemInstruction(combined), question)
		if err != nil {
			return "", retrieval, err
		}
	}

	return answer, retrieval, nil
}

// assembleContext joins the top chunks into one labeled block, trimmed to
// the token budget.
func (a *Agent) assembleContext(chunks []types.RankedChunk) string {
	var parts []string
	for _, ch := range chunks {
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", ch.SourceURL, ch.Content))
	}

	joined := strings.Join(parts, chunkSeparator)
	for len(parts) > 1 && a.countTokens(joined) > a.budget {
		// Drop the least relevant chunk until the prompt fits.
		parts = parts[:len(parts)-1]
		joined = strings.Join(parts, chunkSeparator)
	}
	return joined
}

func (a *Agent) countTokens(text string) int {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		// Fall back to the usual chars-per-token estimate.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func systemInstruction(contextBlock string) string {
	if contextBlock == "" {
		contextBlock = "empty"
	}
	return fmt.Sprintf(`You are College-Seeker Assistant. Use ONLY the retrieved documents below as authoritative context.
- Answer clearly and to the point, citing the source URL for each factual claim.
- Prefer official college pages, admissions pages and accreditation sources.
- Return a concise direct answer first; add a short 'Details' section with bullets when helpful.
- If the context below cannot answer the question at all, reply with exactly %s and nothing else.

Context:
%s`, needWebSearch, contextBlock)
}

func (a *Agent) generate(ctx context.Context, system, prompt string) (string, error) {
	const maxAttempts = 3

	start := time.Now()
	defer func() {
		a.logger.Info("LLM answer produced", "took", time.Since(start))
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		body, err := a.llm.Generate(ctx, system, prompt)
		if err == nil {
			answer, err := ParseResponse(body).Normalize()
			if err == nil {
				return answer, nil
			}
			// EmptyResponseError is final: the endpoint answered, there
			// is just nothing in it.
			return "", err
		}
		if !types.IsRetryable(err) {
			return "", err
		}

		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("llm generate failed after %d attempts: %w", maxAttempts, lastErr)
}
