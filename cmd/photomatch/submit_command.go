package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photomatch/internal/api"
	"photomatch/internal/config"
	"photomatch/internal/task"
)

const pollInterval = 250 * time.Millisecond

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var codes []string
	var downloadDir string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "submit [FILE...]",
		Short: "Submit image files or bare codes for matching",
		Long: "Submit uploads the given image files (or bare codes passed with --code)\n" +
			"as one batch, polls the daemon until the batch finishes, and renders the\n" +
			"per-input results. With --download the produced archive is fetched as well.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && len(codes) > 0 {
				return fmt.Errorf("pass either files or --code values, not both")
			}
			if len(args) == 0 && len(codes) == 0 {
				return fmt.Errorf("nothing to submit: pass image files or --code values")
			}

			client := ctx.client()
			var submitted api.SubmitResponse
			var err error
			if len(args) > 0 {
				files := make([]string, 0, len(args))
				for _, arg := range args {
					path, expandErr := config.ExpandPath(strings.TrimSpace(arg))
					if expandErr != nil {
						return expandErr
					}
					files = append(files, path)
				}
				submitted, err = client.submitFiles(files)
			} else {
				submitted, err = client.submitCodes(codes)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted task %s\n", submitted.TaskID)
			if noWait {
				fmt.Fprintf(out, "Poll with GET /api/tasks/%s\n", submitted.TaskID)
				return nil
			}

			status, err := pollUntilTerminal(client, submitted.TaskID)
			if err != nil {
				return err
			}
			renderTaskResults(out, status)

			if status.Status == string(task.StatusFailed) {
				return fmt.Errorf("task failed: %s", status.Error)
			}
			if downloadDir != "" {
				if status.SessionID == "" {
					fmt.Fprintln(out, "No archive to download: nothing was staged.")
					return nil
				}
				target, err := client.download(status.SessionID, downloadDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Archive written to %s\n", target)
			} else if status.SessionID != "" {
				fmt.Fprintf(out, "Archive ready: GET /api/download/%s (single use)\n", status.SessionID)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&codes, "code", nil, "Bare product code to look up (repeatable)")
	cmd.Flags().StringVarP(&downloadDir, "download", "d", "", "Directory to download the result archive into")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return immediately after submission")
	return cmd
}

func pollUntilTerminal(client *apiClient, id string) (api.TaskStatus, error) {
	for {
		status, err := client.poll(id)
		if err != nil {
			return api.TaskStatus{}, err
		}
		if status.Status == string(task.StatusCompleted) || status.Status == string(task.StatusFailed) {
			return status, nil
		}
		time.Sleep(pollInterval)
	}
}

func renderTaskResults(out io.Writer, status api.TaskStatus) {
	rows := make([][]string, 0, len(status.Results))
	for _, result := range status.Results {
		detail := result.ProducedName
		if result.Message != "" {
			detail = result.Message
		}
		rows = append(rows, []string{result.Input, result.Status, detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Input", "Status", "Result"}, rows, nil))
	fmt.Fprintf(out, "%s in %.1fs\n",
		summaryRow(status.Matched, status.Unmatched, status.InputErrors),
		status.ElapsedSeconds,
	)
}
