package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"romverify/internal/catalog"
	"romverify/internal/config"
	"romverify/internal/fileutil"
	"romverify/internal/logging"
	"romverify/internal/retroachievements"
	"romverify/internal/system"
)

type catalogStatusRecord struct {
	System    system.System `json:"system"`
	ConsoleID int           `json:"console_id,omitempty"`
	Path      string        `json:"path,omitempty"`
	Cached    bool          `json:"cached"`
	Entries   int           `json:"entries"`
	Hashes    int           `json:"hashes"`
	Updated   *time.Time    `json:"updated,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage cached RetroAchievements game lists",
	}
	catalogCmd.AddCommand(newCatalogFetchCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	return catalogCmd
}

func newCatalogFetchCommand(ctx *commandContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "fetch [system...]",
		Short: "Download game lists that are not cached yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.RetroAchievements.APIKey == "" {
				return fmt.Errorf("%w: set retroachievements.api_key or RA_API_KEY", retroachievements.ErrMissingAPIKey)
			}
			systems, err := systemsArg(cfg, args)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			unlock, err := ctx.acquireLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			cache := ctx.catalogCache(cfg, logger)
			opts := retroachievements.LoadOptions{Refresh: refresh}
			if _, err := cache.LoadCatalogs(cmd.Context(), systems, opts); err != nil {
				return fmt.Errorf("fetch catalogs: %w", err)
			}
			renderCatalogStatuses(cmd, cache.Statuses(cmd.Context(), systems))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Download again even when cached")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show which game lists are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cache := retroachievements.NewCache(cfg.CatalogDir(), nil, logger)
			statuses := cache.Statuses(cmd.Context(), system.All())
			if jsonOutput {
				records := make([]catalogStatusRecord, len(statuses))
				for i, st := range statuses {
					records[i] = statusRecord(st)
				}
				return writeJSON(cmd, records)
			}
			renderCatalogStatuses(cmd, statuses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write status as JSON")
	return cmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <system> <file>",
		Short: "Install a game list downloaded elsewhere",
		Long: `Validate a game list JSON document (the API_GetGameList format with hashes)
and copy it into the catalog cache so scans can use it offline.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sys, ok := system.Parse(args[0])
			if !ok {
				return fmt.Errorf("unknown system %q (want one of %s)", args[0], systemNames(system.All()))
			}
			src, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve game list path: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			unlock, err := ctx.acquireLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()

			cache := retroachievements.NewCache(cfg.CatalogDir(), nil, logger)
			consoles, _ := cache.ConsoleIDs(cmd.Context(), retroachievements.LoadOptions{Offline: true})
			consoleID, ok := catalog.SystemIDs(consoles)[sys]
			if !ok {
				return fmt.Errorf("no console id for %s", sys)
			}
			cat, err := catalog.LoadFile(src, sys, consoleID)
			if err != nil {
				return fmt.Errorf("validate game list: %w", err)
			}
			dst := cache.GameListPath(consoleID)
			if err := fileutil.CopyFile(src, dst); err != nil {
				return fmt.Errorf("install game list: %w", err)
			}
			logger.Info("game list imported",
				logging.String(logging.FieldSystem, sys.String()),
				logging.String(logging.FieldPath, dst),
				logging.Int("entries", cat.Len()),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s titles (%d hashes) to %s\n",
				cat.Len(), sys.CatalogName(), cat.HashCount(), dst)
			return nil
		},
	}
}

func systemsArg(cfg *config.Config, args []string) ([]system.System, error) {
	if len(args) == 0 {
		return cfg.SelectedSystems(), nil
	}
	systems := make([]system.System, 0, len(args))
	for _, arg := range args {
		sys, ok := system.Parse(arg)
		if !ok {
			return nil, fmt.Errorf("unknown system %q (want one of %s)", arg, systemNames(system.All()))
		}
		systems = append(systems, sys)
	}
	return systems, nil
}

func statusRecord(st retroachievements.Status) catalogStatusRecord {
	rec := catalogStatusRecord{
		System:    st.System,
		ConsoleID: st.ConsoleID,
		Path:      st.Path,
		Cached:    st.Cached,
		Entries:   st.Entries,
		Hashes:    st.Hashes,
	}
	if !st.Updated.IsZero() {
		updated := st.Updated.UTC()
		rec.Updated = &updated
	}
	if st.Err != nil {
		rec.Error = st.Err.Error()
	}
	return rec
}

func renderCatalogStatuses(cmd *cobra.Command, statuses []retroachievements.Status) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		kind, state := statusInfo, "missing"
		switch {
		case st.Err != nil:
			kind, state = statusError, "invalid"
		case st.Cached:
			kind, state = statusOK, "cached"
		}
		updated := ""
		if !st.Updated.IsZero() {
			updated = st.Updated.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			st.System.CatalogName(),
			strconv.Itoa(st.ConsoleID),
			strconv.Itoa(st.Entries),
			strconv.Itoa(st.Hashes),
			updated,
			colorizeStatus(state, kind, colorize),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"System", "Console", "Titles", "Hashes", "Updated", "State"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	if missing := countMissing(statuses); missing > 0 {
		fmt.Fprintf(out, "%d of %d catalogs missing; run 'romverify catalog fetch'\n", missing, len(statuses))
	}
}

func countMissing(statuses []retroachievements.Status) int {
	var n int
	for _, st := range statuses {
		if !st.Cached {
			n++
		}
	}
	return n
}
