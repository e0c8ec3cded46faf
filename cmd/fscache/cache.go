package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/fscache"
	"github.com/gophersatwork/fscache/badgerstore"
)

var (
	pruneOlderThan time.Duration
	pruneUnusedFor time.Duration
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fscache result store",
	Long: `Commands for managing stored results.

Results are stored in the XDG cache directory (typically ~/.cache/fscache/<name>).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Store().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cfg, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache location: %s\n", cfg.Dir)
		fmt.Fprintf(out, "Store:          %s\n", cfg.Store)

		switch s := c.Store().(type) {
		case *fscache.FileStore:
			stats, err := s.Stats()
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}
			fmt.Fprintf(out, "Entries:        %s\n", humanize.Comma(int64(stats.Entries)))
			fmt.Fprintf(out, "Size:           %s\n", humanize.IBytes(uint64(stats.TotalSize)))
			if stats.Entries > 0 {
				fmt.Fprintf(out, "Oldest entry:   %s\n", humanize.Time(time.Now().Add(-stats.OldestEntry)))
				fmt.Fprintf(out, "Newest entry:   %s\n", humanize.Time(time.Now().Add(-stats.NewestEntry)))
			}
		case *badgerstore.Store:
			n, err := s.Len()
			if err != nil {
				return fmt.Errorf("failed to count entries: %w", err)
			}
			lsm, vlog := s.Size()
			fmt.Fprintf(out, "Entries:        %s\n", humanize.Comma(int64(n)))
			fmt.Fprintf(out, "Size:           %s (lsm %s, vlog %s)\n",
				humanize.IBytes(uint64(lsm+vlog)), humanize.IBytes(uint64(lsm)), humanize.IBytes(uint64(vlog)))
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old or unused results",
	Long:  `Removes results created before --older-than or not read within --unused-for. Only the file store supports pruning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan <= 0 && pruneUnusedFor <= 0 {
			return fmt.Errorf("one of --older-than or --unused-for is required")
		}

		c, cfg, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		s, ok := c.Store().(*fscache.FileStore)
		if !ok {
			return fmt.Errorf("store %q does not support pruning", cfg.Store)
		}

		removed := 0
		if pruneOlderThan > 0 {
			n, err := s.Prune(pruneOlderThan)
			removed += n
			if err != nil {
				return err
			}
		}
		if pruneUnusedFor > 0 {
			n, err := s.PruneUnused(pruneUnusedFor)
			removed += n
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", removed)
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show store location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Dir)
		return nil
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "remove results created longer ago than this")
	cachePruneCmd.Flags().DurationVar(&pruneUnusedFor, "unused-for", 0, "remove results not read for this long")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
