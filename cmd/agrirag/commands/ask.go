package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/farmsight/agrirag/internal/advisor"
	"github.com/farmsight/agrirag/internal/logging"
	"github.com/farmsight/agrirag/internal/provider"
	"github.com/farmsight/agrirag/internal/sensor"
)

// NewAskCmd constructs the `agrirag ask` command, which sends a single
// natural language question through the advisory pipeline and prints the
// answer to stdout.
func NewAskCmd() *cobra.Command {
	var deviceID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the agricultural advisor a question",
		Long: `Ask a natural language question grounded in the ingested PDF manuals.

With --device, the latest stored reading from that device is included as
field context, so answers account for current soil and weather conditions.

Examples:
  agrirag ask "when should I irrigate my maize field?"
  agrirag ask --device field-7 "is the soil moisture adequate for planting?"
  agrirag ask "what is the safe dosage of urea for wheat at tillering?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			retriever, _, closeRetriever, err := buildRetriever(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeRetriever()

			adv, err := advisor.New(retriever, chatModel, 0)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise advisor: %w", err)
			}

			// Look up the device's latest reading when --device is given. A
			// device that has never reported is not an error — the question
			// is answered without sensor context.
			var payload *sensor.Payload
			if deviceID != "" {
				dbPath, err := sensor.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("ask: failed to resolve sensor DB path: %w", err)
				}
				store, err := sensor.Open(dbPath)
				if err != nil {
					return fmt.Errorf("ask: failed to open sensor store at %s: %w", dbPath, err)
				}
				defer func() { _ = store.Close() }()

				reading, err := store.Latest(ctx, deviceID)
				if err != nil {
					return fmt.Errorf("ask: failed to load reading for %s: %w", deviceID, err)
				}
				if reading == nil {
					log.Warn("no stored reading for device", slog.String("device_id", deviceID))
				} else {
					payload = reading.Payload
				}
			}

			answer, err := adv.Answer(ctx, args[0], payload)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deviceID, "device", "d", "", "Device ID whose latest reading augments the question")

	return cmd
}
