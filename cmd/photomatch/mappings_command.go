package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photomatch/internal/config"
)

func newMappingsCommand(ctx *commandContext) *cobra.Command {
	mappingsCmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and update the code mapping",
	}

	mappingsCmd.AddCommand(newMappingsListCommand(ctx))
	mappingsCmd.AddCommand(newMappingsUploadCommand(ctx))
	mappingsCmd.AddCommand(newMappingsRefreshCommand(ctx))

	return mappingsCmd
}

func newMappingsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the currently published mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.client().mappings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list.Total == 0 {
				fmt.Fprintln(out, "No mapping loaded. Upload a workbook with `photomatch mappings upload`.")
				return nil
			}

			rows := make([][]string, 0, len(list.Entries))
			for _, entry := range list.Entries {
				rows = append(rows, []string{entry.Source, entry.Target})
			}
			fmt.Fprintln(out, renderTable([]string{"Source", "Target"}, rows, nil))
			fmt.Fprintf(out, "%d mappings", list.Total)
			if list.RefreshedAt != "" {
				fmt.Fprintf(out, ", refreshed %s", list.RefreshedAt)
			}
			if list.ContentHash != "" {
				fmt.Fprintf(out, " (hash %s)", shortHash(list.ContentHash))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newMappingsUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a workbook and publish its mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			outcome, err := ctx.client().uploadMapping(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outcome.Updated {
				fmt.Fprintf(out, "Mapping updated: %d codes\n", outcome.Total)
			} else {
				fmt.Fprintf(out, "Workbook unchanged: %d codes already published\n", outcome.Total)
			}
			return nil
		},
	}
}

func newMappingsRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the workbook from the configured remote URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := ctx.client().refreshMapping()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outcome.Message != "" {
				fmt.Fprintf(out, "%s (%d codes)\n", outcome.Message, outcome.Total)
			} else if outcome.Updated {
				fmt.Fprintf(out, "Mapping updated: %d codes\n", outcome.Total)
			} else {
				fmt.Fprintf(out, "Mapping unchanged: %d codes\n", outcome.Total)
			}
			return nil
		},
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
