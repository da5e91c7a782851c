package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/console"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print each workflow's validity and next scheduled fire time",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, wf := range a.cache.Workflows() {
				if wf.ParseError != nil {
					cmd.Println(console.FormatErrorMessage(wf.GlobalID + ": " + wf.ParseError.Error()))
					continue
				}
				if !wf.Enabled {
					cmd.Println(console.FormatWarningMessage(wf.GlobalID + ": disabled"))
					continue
				}

				next, ok, err := nextRunTime(a.db, wf.GlobalID)
				switch {
				case err != nil:
					cmd.Println(console.FormatErrorMessage(wf.GlobalID + ": " + err.Error()))
				case !ok:
					cmd.Println(console.FormatInfoMessage(wf.GlobalID + ": not scheduled"))
				default:
					cmd.Println(console.FormatSuccessMessage(fmt.Sprintf("%s: next run %s", wf.GlobalID, next.Format(time.RFC3339))))
				}
			}
			return nil
		},
	}
}

func nextRunTime(db *sql.DB, jobID string) (time.Time, bool, error) {
	var next sql.NullTime
	err := db.QueryRow(`SELECT next_run_time FROM scheduler_jobs WHERE job_id = ?`, jobID).Scan(&next)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if !next.Valid {
		return time.Time{}, false, nil
	}
	return next.Time, true, nil
}
