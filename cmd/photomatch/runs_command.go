package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "Show recently finished batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.client().runs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list.Runs) == 0 {
				fmt.Fprintln(out, "No recorded runs yet.")
				return nil
			}

			rows := make([][]string, 0, len(list.Runs))
			for _, run := range list.Runs {
				rows = append(rows, []string{
					run.ID,
					run.Status,
					fmt.Sprintf("%d", run.Total),
					summaryRow(run.Matched, run.Unmatched, run.InputErrors),
					run.FinishedAt,
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable([]string{"Task", "Status", "Inputs", "Outcome", "Finished"}, rows, aligns))
			return nil
		},
	}
}
