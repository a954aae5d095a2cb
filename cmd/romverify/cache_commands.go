package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"romverify/internal/hashcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the hash cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheLookupCommand(ctx))
	return cacheCmd
}

func withHashCache(ctx *commandContext, fn func(*hashcache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cache, err := hashcache.Open(cfg.HashCachePath())
	if err != nil {
		return fmt.Errorf("open hash cache: %w", err)
	}
	defer cache.Close()
	return fn(cache)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many hashes are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHashCache(ctx, func(cache *hashcache.Cache) error {
				count, err := cache.Count(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Hash cache: %s\n", cache.Path())
				fmt.Fprintf(out, "Entries:    %d\n", count)
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Forget hashes of files that no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := ctx.acquireLock(cfg)
			if err != nil {
				return err
			}
			defer unlock()
			return withHashCache(ctx, func(cache *hashcache.Cache) error {
				removed, err := cache.Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale entries\n", removed)
				return nil
			})
		},
	}
}

func newCacheLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <hash>",
		Short: "List cached files with the given hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHashCache(ctx, func(cache *hashcache.Cache) error {
				paths, err := cache.FindByHash(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(paths) == 0 {
					fmt.Fprintln(out, "No cached files with that hash")
					return nil
				}
				for _, p := range paths {
					fmt.Fprintln(out, p)
				}
				return nil
			})
		},
	}
}
