package cmd

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/folia-dh/folia/pkg/cache"
	"github.com/folia-dh/folia/pkg/config"
	"github.com/folia-dh/folia/pkg/index"
	"github.com/folia-dh/folia/pkg/log"
	"github.com/folia-dh/folia/pkg/search"
	"github.com/folia-dh/folia/pkg/storage"
)

// loadConfig applies global flags and loads the configuration.
func loadConfig(c *cli.Command) (*config.Config, error) {
	log.SetGlobalDebug(c.Bool("debug"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openSearchService opens the built index read-only and wires the query
// service over it. The caller must close the returned storage.
func openSearchService(cfg *config.Config) (*search.Service, *storage.DocumentStorage, error) {
	stale, err := index.NeedsRebuild(cfg.FilesDir, cfg.IndexDir)
	if err != nil {
		return nil, nil, fmt.Errorf("checking index freshness: %w", err)
	}
	if stale {
		stats, err := index.NewBuilder(cfg).Build()
		if err != nil {
			return nil, nil, fmt.Errorf("rebuilding stale index: %w", err)
		}
		fmt.Printf("Index rebuilt: %d documents indexed, %d skipped\n", stats.Indexed, stats.Skipped)
	}

	store, err := storage.OpenReadOnly(index.DatabasePath(cfg.IndexDir))
	if err != nil {
		return nil, nil, fmt.Errorf("opening index: %w", err)
	}

	return search.NewService(store, cache.NewMemory(), cfg), store, nil
}
