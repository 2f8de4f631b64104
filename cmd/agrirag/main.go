// Command agrirag is the entry point for the agricultural advisory service.
// It provides a CLI interface (via Cobra) for ingesting PDF field manuals,
// serving the HTTP advisory API, and asking one-off questions.
package main

import (
	"fmt"
	"os"

	"github.com/farmsight/agrirag/cmd/agrirag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
