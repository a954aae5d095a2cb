package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"romverify/internal/logging"
	"romverify/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		runID     string
		component string
		level     string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the log file",
		Long: `Print the newest entries of <log_dir>/romverify.log. Scans report their
run id; pass it with --run to see a single scan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.LogDir == "" {
				return errors.New("paths.log_dir is not set; file logging is disabled")
			}
			filter := logs.Filter{RunID: strings.TrimSpace(runID), Component: strings.TrimSpace(component)}
			if level != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q", level)
				}
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			records, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			emit := func(rec logs.Record) error {
				if raw {
					_, err := fmt.Fprintln(out, rec.Raw)
					return err
				}
				_, err := fmt.Fprintln(out, formatRecord(rec))
				return err
			}
			for _, rec := range records {
				if err := emit(rec); err != nil {
					return err
				}
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, 0, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&runID, "run", "", "Only entries of this run id")
	cmd.Flags().StringVar(&component, "component", "", "Only entries of this component")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines unchanged")
	return cmd
}

func formatRecord(rec logs.Record) string {
	var b strings.Builder
	b.WriteString(rec.Time)
	b.WriteByte(' ')
	var level slog.Level
	if err := level.UnmarshalText([]byte(rec.Level)); err == nil {
		fmt.Fprintf(&b, "%-5s", level.String())
	} else {
		fmt.Fprintf(&b, "%-5s", strings.ToUpper(rec.Level))
	}
	if rec.Component != "" {
		b.WriteString(" [" + rec.Component + "]")
	}
	b.WriteString(" " + rec.Msg)
	return b.String()
}
