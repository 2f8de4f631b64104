package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/farmsight/agrirag/internal/embedder"
	"github.com/farmsight/agrirag/internal/ingestion"
	"github.com/farmsight/agrirag/internal/logging"
)

// NewIngestCmd constructs the `agrirag ingest` command, which runs the PDF
// manual ingestion pipeline to populate the vector index.
func NewIngestCmd() *cobra.Command {
	var sourceDir string
	var indexDir string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest PDF field manuals into the vector index",
		Long: `Scan a directory for PDF field manuals and index them for retrieval.

Each manual is split into overlapping text chunks, embedded, and upserted
into the vector store. Re-running ingestion over the same files replaces
the previous chunks rather than duplicating them.

Relevant environment variables:
  VECTOR_BACKEND       Vector store backend: chromem, qdrant (default: chromem)
  VECTOR_INDEX_DIR     On-disk index directory for chromem (default: chroma_db)
  VECTOR_COLLECTION    Collection name (default: agrirag-docs)
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  MODEL_PROVIDER       Embedding backend: openai, ollama, azure (default: openai)
  EMBEDDING_*          Provider-specific overrides (see README)
  INGEST_SOURCE_DIR    Source directory when --source is not given (default: data)
  INGEST_CHUNK_SIZE    Chunk size when --chunk-size is not given (default: 1000)
  INGEST_CHUNK_OVERLAP Overlap when --chunk-overlap is not given (default: 200)

Examples:
  agrirag ingest
  agrirag ingest --source ./manuals
  agrirag ingest --chunk-size 800 --chunk-overlap 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			sourceDir, chunkSize, chunkOverlap = resolveIngestSettings(cmd, sourceDir, chunkSize, chunkOverlap)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

			store, err := buildVectorStore(ctx, log, indexDir)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = store.Close() }()

			pipeline, err := ingestion.NewPipeline(ingestion.NewPDFExtractor(), emb, store, &ingestion.Config{
				SourceDir:    sourceDir,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			}, log)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.String("source", sourceDir))

			result, err := pipeline.Run(ctx, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("files", result.Files),
				slog.Int("pages", result.Pages),
				slog.Int("chunks", result.Chunks),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceDir, "source", "s", "data", "Directory scanned for PDF manuals")
	cmd.Flags().StringVar(&indexDir, "index", "", "On-disk index directory for the chromem backend (default: VECTOR_INDEX_DIR or chroma_db)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 200, "Characters of overlap between consecutive chunks")

	return cmd
}

// resolveIngestSettings applies the INGEST_* environment variables (which the
// YAML ingestion section is projected into) for any flag the user did not set
// explicitly. Precedence: flag > env > built-in default. This must run in
// RunE, not at flag registration, because the config file is only loaded into
// the environment by the root command's PersistentPreRunE.
func resolveIngestSettings(cmd *cobra.Command, sourceDir string, chunkSize, chunkOverlap int) (string, int, int) {
	flags := cmd.Flags()
	if !flags.Changed("source") {
		sourceDir = getEnvOrDefault("INGEST_SOURCE_DIR", sourceDir)
	}
	if !flags.Changed("chunk-size") {
		chunkSize = getEnvInt("INGEST_CHUNK_SIZE", chunkSize)
	}
	if !flags.Changed("chunk-overlap") {
		chunkOverlap = getEnvInt("INGEST_CHUNK_OVERLAP", chunkOverlap)
	}
	return sourceDir, chunkSize, chunkOverlap
}
