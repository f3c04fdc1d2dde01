package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/folia-dh/folia/pkg/index"
	"github.com/folia-dh/folia/pkg/storage"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show index statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			store, err := storage.OpenReadOnly(index.DatabasePath(cfg.IndexDir))
			if err != nil {
				return fmt.Errorf("opening index (run 'folia build' first): %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					fmt.Printf("Warning: failed to close index: %v\n", err)
				}
			}()

			stats, err := store.GetStats()
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			fmt.Printf("Total documents: %v\n", stats["total_documents"])
			if repos, ok := stats["repositories"].(map[string]int); ok && len(repos) > 0 {
				fmt.Println("Documents per repository:")
				names := make([]string, 0, len(repos))
				for name := range repos {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  %s: %d\n", name, repos[name])
				}
			}

			universes, err := index.LoadUniverses(cfg.IndexDir)
			if err != nil {
				return fmt.Errorf("reading facet universes: %w", err)
			}
			for _, category := range []string{"language", "material", "author"} {
				if values := universes[category]; len(values) > 0 {
					fmt.Printf("Distinct %s values: %d\n", category, len(values))
				}
			}
			return nil
		},
	}
}
