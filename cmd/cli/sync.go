package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agorino/catalog-service/internal/database"
	"github.com/agorino/catalog-service/internal/fetch"
	"github.com/agorino/catalog-service/internal/ingest"
)

var syncAll bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [shop-id]",
	Short: "Sync one merchant feed, or all enabled merchants with --all",
	Example: `  catalog-service sync 3
  catalog-service sync --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync every enabled shop")
}

func runSync(cmd *cobra.Command, args []string) error {
	if !syncAll && len(args) == 0 {
		return fmt.Errorf("either a shop id or --all is required")
	}

	ctx := context.Background()
	if err := connectDatabase(ctx); err != nil {
		return err
	}
	defer database.Close()

	fetcher, err := fetch.New(fetch.Options{
		CacheDir: cfg.Feeds.CacheDir,
		TTL:      cfg.Feeds.CacheTTL,
		Timeout:  cfg.Feeds.FetchTimeout,
	})
	if err != nil {
		return err
	}
	coordinator := ingest.NewCoordinator(fetcher, nil,
		int64(cfg.Feeds.MaxConcurrent), cfg.Feeds.BatchSize)

	var results []ingest.SyncResult
	if syncAll {
		results = coordinator.SyncAll(ctx)
	} else {
		shopID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shop id: %s", args[0])
		}
		results = []ingest.SyncResult{coordinator.SyncMerchant(ctx, shopID)}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
