package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/console"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Manually run a single workflow through the step engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			workflowID := args[0]
			result, err := a.engine.Run(cmd.Context(), workflowID, time.Now())
			if err != nil {
				return err
			}

			for _, step := range result.Steps {
				switch {
				case step.Err != nil:
					cmd.Println(console.FormatErrorMessage(step.Section + ": " + step.Err.Error()))
				case step.Skipped:
					cmd.Println(console.FormatInfoMessage(step.Section + ": skipped (" + step.SkipWhy + ")"))
				default:
					cmd.Println(console.FormatSuccessMessage(step.Section + ": completed"))
				}
			}
			return nil
		},
	}
}
