package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"photomatch/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and environment health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}

			status, err := ctx.client().status()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK,
					fmt.Sprintf("pid %d, up %s", status.PID, formatUptime(status.UptimeSeconds)), colorize))

				mappingKind := statusOK
				mappingDetail := fmt.Sprintf("%d codes", status.MappingTotal)
				if status.MappingTotal == 0 {
					mappingKind = statusWarn
					mappingDetail = "no mapping loaded"
				} else if status.RefreshedAt != "" {
					mappingDetail += ", refreshed " + status.RefreshedAt
				}
				fmt.Fprintln(out, renderStatusLine("Mapping", mappingKind, mappingDetail, colorize))
				fmt.Fprintln(out, renderStatusLine("Active tasks", statusInfo,
					fmt.Sprintf("%d", status.ActiveTasks), colorize))
			}

			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil || cfg == nil {
				return cfgErr
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(context.Background(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					if result.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return nil
		},
	}
}

func formatUptime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Truncate(time.Second).String()
}
