package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ollamaTimeout bounds a single embedding batch. Local models can be slow
// on first load, so this is generous.
const ollamaTimeout = 60 * time.Second

// OllamaEmbedder computes embeddings against a local Ollama server's
// /api/embed endpoint. Safe for concurrent use; no credentials involved.
type OllamaEmbedder struct {
	endpoint string
	model    string
	client   *http.Client
}

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// Model names the embedding model, e.g. "nomic-embed-text".
	Model string
}

// NewOllamaEmbedder constructs an embedder for the given Ollama server.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		endpoint: cfg.Host + "/api/embed",
		model:    cfg.Model,
		client:   &http.Client{Timeout: ollamaTimeout},
	}
}

type ollamaBatchRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed returns one vector per input text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(ollamaBatchRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embedder: decode response: %w", err)
	}

	// Ollama reports errors both via status code and an error field; prefer
	// the field when present because it names the actual failure.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return nil, fmt.Errorf("ollama embedder: %s", out.Error)
		}
		return nil, fmt.Errorf("ollama embedder: HTTP %d", resp.StatusCode)
	}

	if got, want := len(out.Embeddings), len(texts); got != want {
		return nil, fmt.Errorf("ollama embedder: got %d embeddings for %d inputs", got, want)
	}

	return out.Embeddings, nil
}
