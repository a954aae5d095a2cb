package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"romverify/internal/preflight"
)

const statusLabelWidth = 22

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, cached catalogs and API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Offline: offline, Logger: logger})
			if jsonOutput {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, "romverify status")
			fmt.Fprintln(out, strings.Repeat("-", len("romverify status")))
			for _, r := range results {
				kind, label := statusOK, "OK"
				if !r.Passed {
					kind, label = statusError, "FAIL"
				}
				line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, r.Name+":", label, r.Detail)
				fmt.Fprintln(out, colorizeStatus(line, kind, colorize))
			}
			if failed := preflight.Failed(results); failed > 0 {
				fmt.Fprintf(out, "%d of %d checks failed\n", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the API reachability check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write results as JSON")
	return cmd
}
