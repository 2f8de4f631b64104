package rag

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// ChromemConfig holds the settings for the embedded chromem vector store.
type ChromemConfig struct {
	// Path is the directory the index is persisted to (default: chroma_db).
	// Empty Path with Persistent=false yields an in-memory store for tests.
	Path string

	// Collection is the collection name within the store.
	Collection string

	// Persistent selects the durable on-disk store. When false the store
	// lives only in memory.
	Persistent bool
}

// ChromemStore implements VectorStore backed by an embedded chromem-go
// database. The index is a plain directory on local disk — no external
// service is required, matching the offline ingest-then-serve workflow.
type ChromemStore struct {
	// collection is the chromem collection holding all document chunks.
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) the chromem database at cfg.Path and
// returns a ready-to-use VectorStore bound to cfg.Collection.
func NewChromemStore(cfg *ChromemConfig) (*ChromemStore, error) {
	if cfg.Path == "" {
		cfg.Path = "chroma_db"
	}
	if cfg.Collection == "" {
		cfg.Collection = "agrirag-docs"
	}

	var db *chromem.DB
	if cfg.Persistent {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("chromem: open %s: %w", cfg.Path, err)
		}
		db = d
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied by the caller, so no embedding function
	// is registered on the collection.
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: get or create collection %q: %w", cfg.Collection, err)
	}

	return &ChromemStore{collection: collection}, nil
}

// Upsert stores a batch of documents with their pre-computed embeddings.
// Documents whose IDs already exist are replaced in place.
func (s *ChromemStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("chromem: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	for i, doc := range docs {
		metadata := map[string]string{"source": doc.Source}
		for k, v := range doc.Metadata {
			metadata[k] = v
		}

		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: embeddings[i],
			Metadata:  metadata,
		})
		if err != nil {
			return fmt.Errorf("chromem: add document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
// Requesting more results than the collection holds is clamped rather than
// treated as an error; an empty collection yields an empty result.
func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: make(map[string]string),
		}
		for k, v := range r.Metadata {
			if k == "source" {
				doc.Source = v
				continue
			}
			doc.Metadata[k] = v
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Delete removes documents from the collection by their IDs.
func (s *ChromemStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("chromem: delete failed: %w", err)
	}
	return nil
}

// Close is a no-op — chromem persists synchronously on every write and holds
// no connection state.
func (s *ChromemStore) Close() error { return nil }
