package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheInfoCmd = &cobra.Command{
	Use:   "cache-info",
	Short: "Show cached response entries",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "cache-clear",
	Short: "Remove cache entries",
	Long:  `Remove all cache entries, or only expired ones with --expired.`,
	RunE:  runCacheClear,
}

var cacheClearExpired bool

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearExpired, "expired", false, "Only remove expired entries")
	rootCmd.AddCommand(cacheInfoCmd)
	rootCmd.AddCommand(cacheClearCmd)
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	entries, err := a.store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}

	cmd.Printf("Cache entries: %d (%.1f KB)\n", stats.EntryCount, float64(stats.TotalSizeBytes)/1024)
	for _, e := range entries {
		status := "fresh"
		if e.Expired {
			status = "expired"
		}
		cmd.Printf("  %s  %6d bytes  %s  %s\n",
			e.Key, e.SizeBytes, e.CreatedAt.Format(time.RFC3339), status)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	if cacheClearExpired {
		removed, err := a.store.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge cache: %w", err)
		}
		cmd.Printf("Removed %d expired entries\n", removed)
		return nil
	}

	stats, err := a.store.ClearAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	cmd.Printf("Removed %d entries (%.1f KB freed)\n",
		stats.EntriesRemoved, float64(stats.BytesFreed)/1024)
	return nil
}
