package main

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/console"
)

func newRescanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan",
		Short: "Re-scan every vault and reconcile the scheduler's job table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " scanning vaults..."
			sp.Start()

			loadErrors, err := a.cache.Rescan(a.roots.DataRoot)
			if err != nil {
				sp.Stop()
				return err
			}
			events, invalid, err := a.sync.Sync(a.cache.Workflows(), time.Now())
			sp.Stop()
			if err != nil {
				return err
			}

			for _, e := range events {
				cmd.Println(console.FormatInfoMessage(string(e.Action) + ": " + e.WorkflowID))
			}
			for id, cause := range invalid {
				cmd.Println(console.FormatWarningMessage(id + ": " + cause.Error()))
			}
			for _, le := range loadErrors {
				cmd.Println(console.FormatErrorMessage(le.Vault + "/" + le.RelPath + ": " + le.Err.Error()))
			}
			if len(events) == 0 && len(invalid) == 0 && len(loadErrors) == 0 {
				cmd.Println(console.FormatSuccessMessage("no changes"))
			}
			return nil
		},
	}
}
