package rag

import (
	"context"
	"fmt"
)

// DefaultRetriever answers similarity queries by embedding the query text
// and searching the vector store. The embedder must be the one used during
// manual ingestion — a different embedding space degrades relevance without
// any visible error.
type DefaultRetriever struct {
	embedder Embedder
	store    VectorStore

	// defaultTopK applies when Retrieve is called with topK <= 0.
	defaultTopK int
}

// NewRetriever wires an Embedder and VectorStore into a DefaultRetriever.
// defaultTopK <= 0 falls back to 6, matching the advisory service's default
// excerpt count.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 6
	}
	return &DefaultRetriever{embedder: embedder, store: store, defaultTopK: defaultTopK}, nil
}

// Retrieve returns the topK most similar documents to query. topK <= 0 uses
// the constructor default. The query is embedded exactly once per call.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := r.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return docs, nil
}
