// Command assistantmd is the process entrypoint: it wires bootstrap,
// settings, the sqlite store, and every package's registry/engine/manager
// together, then dispatches to one of the cobra subcommands below.
// Grounded on the teacher pack's cmd/ cobra root (deleted from this repo
// per DESIGN.md, but its subcommand-per-file layout and root-command
// wiring are reused here).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/console"
)

func main() {
	root := &cobra.Command{
		Use:   "assistantmd",
		Short: "Self-hosted agent harness for executing LLM workflows over a markdown vault",
	}

	root.AddCommand(
		newServeCommand(),
		newRescanCommand(),
		newRunCommand(),
		newStatusCommand(),
		newChatCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
