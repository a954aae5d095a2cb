package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"romverify/internal/bytesource"
	"romverify/internal/logging"
	"romverify/internal/system"
)

type hashRecord struct {
	Path   string        `json:"path"`
	System system.System `json:"system,omitempty"`
	Hash   string        `json:"hash,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func newHashCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the RetroAchievements hash of ROM files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			engine, closeEngine, err := ctx.hashEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer closeEngine()

			records := make([]hashRecord, 0, len(args))
			for _, path := range args {
				rec := hashRecord{Path: path}
				sys, err := system.ClassifyErr(path)
				if err != nil {
					rec.Error = err.Error()
					records = append(records, rec)
					continue
				}
				rec.System = sys
				hash, err := engine.Hash(cmd.Context(), path, sys)
				if err != nil {
					logger.Debug("hash failed", logging.String(logging.FieldPath, path), logging.Error(err))
					rec.Error = err.Error()
				} else {
					rec.Hash = hash
				}
				records = append(records, rec)
			}

			if jsonOutput {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			for _, rec := range records {
				if rec.Error != "" {
					fmt.Fprintf(out, "%s  error: %s\n", rec.Path, rec.Error)
					continue
				}
				fmt.Fprintf(out, "%s  %s  %s\n", rec.Hash, rec.System, rec.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write results as JSON")
	return cmd
}

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "classify <file>...",
		Short:       "Show which system each file belongs to",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				row := []string{path, "-", "-", "-"}
				if sys, ok := system.Classify(path); ok {
					row[1] = sys.String()
					row[2] = sys.CatalogName()
					row[3] = hashMethodName(sys.HashMethod())
				}
				if bytesource.IsArchive(path) {
					row[0] += " (archive)"
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "System", "Catalog", "Hash"},
				rows,
				nil,
			))
			return nil
		},
	}
}

func hashMethodName(method system.HashMethod) string {
	switch method {
	case system.HashStructuredNDS:
		return "nds header+code+icon"
	default:
		return "whole file"
	}
}
