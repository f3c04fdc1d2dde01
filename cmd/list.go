package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ListCommand creates the list command
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the full catalog",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "facets",
				Usage: "Show facet counts for the catalog",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			svc, store, err := openSearchService(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					fmt.Printf("Warning: failed to close index: %v\n", err)
				}
			}()

			results, err := svc.ListAll(c.Int("page"))
			if err != nil {
				return fmt.Errorf("listing catalog: %w", err)
			}

			renderResults("", results, c.Bool("facets"))
			return nil
		},
	}
}
