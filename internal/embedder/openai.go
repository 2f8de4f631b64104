// Package embedder turns text into dense vectors for similarity search.
// Backends (OpenAI, Azure OpenAI, Ollama) are reached over plain HTTP since
// the embeddings REST APIs are a single endpoint each. Manual chunks and
// queries must go through the same embedder so both land in one embedding
// space — mixing backends between ingestion and query silently breaks
// retrieval.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const openaiTimeout = 30 * time.Second

// OpenAIEmbedder calls the OpenAI (or Azure OpenAI) embeddings API.
// Safe for concurrent use.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	azure      bool
	apiVersion string
	client     *http.Client
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is "https://api.openai.com/v1" for OpenAI, or
	// "https://<resource>.openai.azure.com/openai" for Azure.
	BaseURL string
	// APIKey authenticates requests.
	APIKey string
	// Model names the embedding model, e.g. "text-embedding-3-small".
	Model string
	// Dimensions requests a specific vector length; 0 keeps the model default.
	Dimensions int
	// Azure switches to Azure-style auth (api-key header + api-version param).
	Azure bool
	// APIVersion is the Azure api-version query parameter; unused otherwise.
	APIVersion string
}

// NewOpenAIEmbedder constructs an embedder for the OpenAI embeddings API.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		azure:      cfg.Azure,
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: openaiTimeout},
	}
}

type openaiBatchRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiBatchResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// embedURL builds the endpoint URL. Azure routes through a deployment path
// and requires an api-version parameter.
func (e *OpenAIEmbedder) embedURL() string {
	if e.azure {
		return e.baseURL + "/deployments/" + e.model + "/embeddings?api-version=" + e.apiVersion
	}
	return e.baseURL + "/embeddings"
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := openaiBatchRequest{Input: texts, Model: e.model}
	if e.dimensions > 0 {
		reqBody.Dimensions = e.dimensions
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.embedURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.azure {
		req.Header.Set("api-key", e.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var out openaiBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openai embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil {
			return nil, fmt.Errorf("openai embedder: %s", out.Error.Message)
		}
		return nil, fmt.Errorf("openai embedder: HTTP %d", resp.StatusCode)
	}

	if got, want := len(out.Data), len(texts); got != want {
		return nil, fmt.Errorf("openai embedder: got %d embeddings for %d inputs", got, want)
	}

	// Data may arrive out of order; place each vector by its index field.
	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, len(texts))
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}
