// Package ingestion implements the manual ingestion pipeline.
// It scans a directory for PDF field manuals, extracts page text, chunks the
// content, embeds each chunk, and upserts the results into the vector index.
// This pipeline is invoked by the `agrirag ingest` CLI command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/farmsight/agrirag/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// SourceDir is the directory scanned (non-recursively) for PDF files.
	// Defaults to "data" if empty.
	SourceDir string

	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive chunks.
	// Defaults to 200 if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the scan → extract → chunk → embed → upsert flow
// over a directory of PDF manuals.
type Pipeline struct {
	// extractor pulls plain text out of PDF pages.
	extractor PageExtractor

	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// log receives progress and warning events.
	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(extractor PageExtractor, embedder rag.Embedder, store rag.VectorStore, cfg *Config, log *slog.Logger) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "data"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Result summarises a completed ingestion run.
type Result struct {
	// Files is the number of PDF files processed.
	Files int
	// Pages is the number of pages that yielded text.
	Pages int
	// Chunks is the number of chunks upserted into the index.
	Chunks int
}

// Run discovers PDF files in the source directory and ingests each in turn.
// Files are processed in sorted order; the first error aborts the run but
// chunks already upserted from earlier files remain in the index, and a
// re-run is safe because chunk IDs are deterministic. A directory with no
// PDF files is not an error.
func (p *Pipeline) Run(ctx context.Context, progress func(msg string)) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	files, err := p.discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.log.Warn("ingestion: no PDF files found", slog.String("dir", p.cfg.SourceDir))
		progress(fmt.Sprintf("no PDF files found in %s", p.cfg.SourceDir))
		return &Result{}, nil
	}

	res := &Result{}
	for _, path := range files {
		progress(fmt.Sprintf("extracting %s", path))

		pages, err := p.extractor.ExtractPages(path)
		if err != nil {
			return res, fmt.Errorf("ingestion: extract failed for %s: %w", path, err)
		}

		var docs []rag.Document
		var texts []string
		filePages := 0
		for _, page := range pages {
			chunks := Split(page.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
			if len(chunks) == 0 {
				continue
			}
			filePages++
			for i, chunk := range chunks {
				docs = append(docs, rag.Document{
					ID:      chunkID(path, page.Number, i),
					Content: chunk,
					Source:  path,
					Metadata: map[string]string{
						"page":        fmt.Sprintf("%d", page.Number),
						"chunk_index": fmt.Sprintf("%d", i),
					},
				})
				texts = append(texts, chunk)
			}
		}

		if len(docs) == 0 {
			p.log.Warn("ingestion: no text extracted", slog.String("file", path))
			progress(fmt.Sprintf("skipped %s: no extractable text", path))
			res.Files++
			continue
		}

		progress(fmt.Sprintf("chunked %s into %d chunks across %d pages", path, len(docs), filePages))

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("ingestion: embedding failed for %s: %w", path, err)
		}

		if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
			return res, fmt.Errorf("ingestion: upsert failed for %s: %w", path, err)
		}

		res.Files++
		res.Pages += filePages
		res.Chunks += len(docs)
		progress(fmt.Sprintf("ingested %d chunks from %s", len(docs), path))
	}

	p.log.Info("ingestion: run complete",
		slog.Int("files", res.Files),
		slog.Int("pages", res.Pages),
		slog.Int("chunks", res.Chunks),
	)
	return res, nil
}

// discover lists PDF files in the source directory, non-recursive, sorted by
// name so runs are deterministic. The extension match is case-insensitive.
func (p *Pipeline) discover() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: read source dir %s: %w", p.cfg.SourceDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(p.cfg.SourceDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// chunkID derives a deterministic UUID-shaped ID from the chunk's file path,
// page number, and chunk index. Re-ingesting the same file overwrites the
// same IDs instead of duplicating chunks, and the UUID form keeps the ID
// usable as a Qdrant point ID.
func chunkID(path string, page, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d#%d", path, page, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
