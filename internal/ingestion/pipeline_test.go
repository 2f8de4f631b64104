package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/farmsight/agrirag/internal/rag"
)

// fakeExtractor returns canned pages per file path.
type fakeExtractor struct {
	pages map[string][]Page
	err   error
}

func (f *fakeExtractor) ExtractPages(path string) ([]Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[filepath.Base(path)], nil
}

// fakeEmbedder returns a fixed-size vector per input text.
type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0.5}
	}
	return out, nil
}

// fakeVectorStore records upserted documents.
type fakeVectorStore struct {
	docs []rag.Document
	err  error
}

func (f *fakeVectorStore) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	if f.err != nil {
		return f.err
	}
	if len(docs) != len(embeddings) {
		return errors.New("docs and embeddings length mismatch")
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeVectorStore) Search(context.Context, []float32, int) ([]rag.Document, error) {
	return nil, nil
}
func (f *fakeVectorStore) Delete(context.Context, []string) error { return nil }
func (f *fakeVectorStore) Close() error                           { return nil }

// writeFakePDFs creates empty placeholder files so discovery finds them; the
// fake extractor supplies the content.
func writeFakePDFs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func Test_Pipeline_IngestsChunksWithMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFakePDFs(t, dir, "wheat-manual.pdf")

	ext := &fakeExtractor{pages: map[string][]Page{
		"wheat-manual.pdf": {
			{Number: 1, Text: "Apply nitrogen at tillering stage."},
			{Number: 2, Text: "Irrigate when soil moisture drops below 20 percent."},
		},
	}}
	store := &fakeVectorStore{}
	p, err := NewPipeline(ext, &fakeEmbedder{}, store, &Config{SourceDir: dir}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Files != 1 || res.Pages != 2 || res.Chunks != 2 {
		t.Errorf("result: want 1 file / 2 pages / 2 chunks, got %+v", res)
	}
	if len(store.docs) != 2 {
		t.Fatalf("want 2 upserted docs, got %d", len(store.docs))
	}
	doc := store.docs[0]
	if doc.Metadata["page"] != "1" || doc.Metadata["chunk_index"] != "0" {
		t.Errorf("metadata: got %v", doc.Metadata)
	}
	if !strings.HasSuffix(doc.Source, "wheat-manual.pdf") {
		t.Errorf("source: got %q", doc.Source)
	}
	if doc.ID == "" || doc.ID == store.docs[1].ID {
		t.Errorf("chunk IDs must be distinct and non-empty: %q vs %q", doc.ID, store.docs[1].ID)
	}
}

func Test_Pipeline_ReingestProducesSameIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFakePDFs(t, dir, "manual.pdf")

	ext := &fakeExtractor{pages: map[string][]Page{
		"manual.pdf": {{Number: 1, Text: "Rotate crops every season."}},
	}}

	run := func() []rag.Document {
		store := &fakeVectorStore{}
		p, err := NewPipeline(ext, &fakeEmbedder{}, store, &Config{SourceDir: dir}, nil)
		if err != nil {
			t.Fatalf("new pipeline: %v", err)
		}
		if _, err := p.Run(context.Background(), nil); err != nil {
			t.Fatalf("run: %v", err)
		}
		return store.docs
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("chunk count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: ID changed between runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func Test_Pipeline_EmptyDirIsNotAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	emb := &fakeEmbedder{}
	store := &fakeVectorStore{}
	p, err := NewPipeline(&fakeExtractor{}, emb, store, &Config{SourceDir: dir}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("want zero chunks, got %d", res.Chunks)
	}
	if emb.calls != 0 {
		t.Errorf("embedder should not be called for an empty dir")
	}
	if len(store.docs) != 0 {
		t.Errorf("store should not be touched for an empty dir")
	}
}

func Test_Pipeline_MissingDirIsAnError(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeVectorStore{},
		&Config{SourceDir: "/nonexistent/manuals"}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Error("want error for missing source dir")
	}
}

func Test_Pipeline_SkipsNonPDFFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFakePDFs(t, dir, "manual.PDF")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	ext := &fakeExtractor{pages: map[string][]Page{
		"manual.PDF": {{Number: 1, Text: "Case-insensitive extension match."}},
	}}
	store := &fakeVectorStore{}
	p, err := NewPipeline(ext, &fakeEmbedder{}, store, &Config{SourceDir: dir}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Files != 1 {
		t.Errorf("want 1 file (uppercase .PDF only), got %d", res.Files)
	}
}

func Test_Pipeline_EmbedErrorAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFakePDFs(t, dir, "manual.pdf")

	ext := &fakeExtractor{pages: map[string][]Page{
		"manual.pdf": {{Number: 1, Text: "some text"}},
	}}
	store := &fakeVectorStore{}
	p, err := NewPipeline(ext, &fakeEmbedder{err: errors.New("provider down")}, store, &Config{SourceDir: dir}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Error("want embed error to propagate")
	}
	if len(store.docs) != 0 {
		t.Errorf("nothing should be upserted after embed failure")
	}
}

func Test_Pipeline_PageWithNoTextIsSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFakePDFs(t, dir, "scanned.pdf")

	ext := &fakeExtractor{pages: map[string][]Page{
		"scanned.pdf": {{Number: 1, Text: "   "}, {Number: 2, Text: ""}},
	}}
	store := &fakeVectorStore{}
	p, err := NewPipeline(ext, &fakeEmbedder{}, store, &Config{SourceDir: dir}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	res, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Chunks != 0 || len(store.docs) != 0 {
		t.Errorf("whitespace-only pages should produce no chunks, got %d", res.Chunks)
	}
}
