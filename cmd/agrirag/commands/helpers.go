package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/farmsight/agrirag/internal/embedder"
	"github.com/farmsight/agrirag/internal/rag"
	"github.com/farmsight/agrirag/internal/sensor"
	"github.com/farmsight/agrirag/internal/server"
)

// buildVectorStore opens the vector store selected by VECTOR_BACKEND.
// "chromem" (the default) uses a persistent on-disk index under
// VECTOR_INDEX_DIR; "qdrant" connects to a remote Qdrant cluster.
// A non-empty indexDir overrides VECTOR_INDEX_DIR for the chromem backend.
func buildVectorStore(ctx context.Context, log *slog.Logger, indexDir string) (rag.VectorStore, error) {
	backend := getEnvOrDefault("VECTOR_BACKEND", "chromem")

	switch backend {
	case "chromem":
		path := indexDir
		if path == "" {
			path = getEnvOrDefault("VECTOR_INDEX_DIR", "chroma_db")
		}
		collection := getEnvOrDefault("VECTOR_COLLECTION", "agrirag-docs")

		store, err := rag.NewChromemStore(&rag.ChromemConfig{
			Path:       path,
			Collection: collection,
			Persistent: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem index at %s: %w", path, err)
		}
		log.Info("chromem store ready", slog.String("path", path), slog.String("collection", collection))
		return store, nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("VECTOR_COLLECTION", "agrirag-docs")
		vectorSize := uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are bounded

		store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown vector backend %q (supported: chromem, qdrant)", backend)
	}
}

// buildRetriever wires an embedder and vector store into a Retriever. The
// opened store is returned so callers can probe it; the close func releases
// its resources.
func buildRetriever(ctx context.Context, log *slog.Logger) (rag.Retriever, rag.VectorStore, func(), error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

	store, err := buildVectorStore(ctx, log, "")
	if err != nil {
		return nil, nil, nil, err
	}

	retriever, err := rag.NewRetriever(emb, store, 6)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	return retriever, store, func() { _ = store.Close() }, nil
}

// buildPingers assembles the readiness probes for GET /api/ready. The sensor
// store is always probed (the concrete SQLite store exposes Ping; the Store
// interface deliberately does not, so fakes stay small); a Qdrant probe is
// added only when the vector store is a remote Qdrant cluster (the embedded
// chromem index has no liveness to check).
func buildPingers(sensorStore *sensor.SQLiteStore, vectorStore rag.VectorStore) []server.Pinger {
	pingers := []server.Pinger{
		server.NewStorePinger(sensorStore, "sensor-db"),
	}

	if qs, ok := vectorStore.(*rag.QdrantStore); ok {
		pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
	}

	return pingers
}

// getEnvOrDefault returns the value of the environment variable key, or
// fallback if it is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable key, or
// fallback if it is unset or not a valid integer.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
