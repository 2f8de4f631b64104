package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/farmsight/agrirag/internal/advisor"
	"github.com/farmsight/agrirag/internal/logging"
	"github.com/farmsight/agrirag/internal/provider"
	"github.com/farmsight/agrirag/internal/sensor"
	"github.com/farmsight/agrirag/internal/server"
	"github.com/farmsight/agrirag/internal/tracing"
)

// NewServeCmd constructs the `agrirag serve` command, which starts the HTTP
// advisory API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agrirag HTTP advisory API",
		Long: `Start the agrirag HTTP server on localhost.

The server exposes POST /sensor for device telemetry uploads and POST /ask
for retrieval-augmented advisory questions, plus health, readiness and
Prometheus metrics endpoints.

Examples:
  agrirag serve
  agrirag serve --port 9090
  MODEL_PROVIDER=gemini agrirag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			// Open the sensor reading store. SENSOR_DB overrides the default
			// path (~/.agrirag/sensors.db).
			dbPath, err := sensor.DefaultDBPath()
			if err != nil {
				return fmt.Errorf("serve: failed to resolve sensor DB path: %w", err)
			}
			sensorStore, err := sensor.Open(dbPath)
			if err != nil {
				return fmt.Errorf("serve: failed to open sensor store at %s: %w", dbPath, err)
			}
			defer func() { _ = sensorStore.Close() }()
			log.Info("sensor store opened", slog.String("path", dbPath))

			retriever, vectorStore, closeRetriever, err := buildRetriever(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeRetriever()

			adv, err := advisor.New(retriever, chatModel, 0)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise advisor: %w", err)
			}

			srv, err := server.New(sensorStore, adv, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(sensorStore, vectorStore),
				APIKey:  os.Getenv("AGRIRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}
